package main

import "github.com/AvaProtocol/bot-migrator/cmd"

func main() {
	cmd.Execute()
}
