package migrations

import (
	"embed"

	"github.com/AvaProtocol/bot-migrator/core/migrator"
)

// Files is the catalog: the migration sources themselves, scanned by name.
//
//go:embed v*.go
var Files embed.FS

// Migrations maps each catalog file to its definition. The file name decides
// the version and the order a migration runs in, so a new migration needs
// both a correctly named file (see `bot-migrator create-migration`) and an
// entry here.
var Migrations = migrator.TableLoader{
	"v12_1_0-1565966402-add-nlu-confidence-threshold.go": AddNLUConfidenceThreshold,
	"v12_2_0-1571233413-move-qna-to-content.go":          MoveQnaToContent,
	"v12_5_0-1580200000-add-channel-user-attributes.go":  AddChannelUserAttributes,
	"v12_10_0-1590000000-set-default-language.go":        SetDefaultLanguage,
	"v12_15_0-1594000000-rename-global-hooks.go":         RenameGlobalHooks,
}

// Source lists the embedded catalog.
func Source() migrator.Source {
	return migrator.NewFSSource(Files, ".")
}

func Loader() migrator.Loader {
	return Migrations
}
