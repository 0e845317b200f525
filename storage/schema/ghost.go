package schema

import (
	"fmt"
	"strings"
)

// Ghost files are stored under ghost:<scope>:<path>
//   global:    server wide files, core migration log
//   bots/<id>: every file of one bot, its config at the root
const (
	GhostPrefix = "ghost:"
	GlobalScope = "global"
	BotsScope   = "bots/"
)

// BotScope returns the scope holding the files of a bot
func BotScope(botID string) string {
	return BotsScope + botID
}

// GhostScopePrefix returns the storage prefix of every file in a scope
func GhostScopePrefix(scope string) string {
	return fmt.Sprintf("%s%s:", GhostPrefix, scope)
}

// GhostFileKey constructs the storage key of a file in a scope
func GhostFileKey(scope, path string) []byte {
	return []byte(GhostScopePrefix(scope) + path)
}

// BotIDFromKey extracts the bot id from the key of a file at the root of the
// bot scope, ok is false for any other key.
func BotIDFromKey(key, file string) (string, bool) {
	rest, found := strings.CutPrefix(key, GhostPrefix+BotsScope)
	if !found {
		return "", false
	}
	id, found := strings.CutSuffix(rest, ":"+file)
	if !found || id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}
