package bots

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/bot-migrator/core/botconfig"
	"github.com/AvaProtocol/bot-migrator/core/ghost"
	"github.com/AvaProtocol/bot-migrator/core/testutil"
	"github.com/AvaProtocol/bot-migrator/model"
)

func TestBotService(t *testing.T) {
	ctx := context.Background()
	g := ghost.New(testutil.TestMemDB(t))
	svc := NewService(g, botconfig.NewProvider(g, nil, nil), testutil.GetLogger())

	require.NoError(t, svc.CreateBot(ctx, testutil.TestBot("welcome", "12.0.0")))
	require.NoError(t, svc.CreateBot(ctx, testutil.TestBot("faq", "11.9.0")))

	err := svc.CreateBot(ctx, testutil.TestBot("faq", "12.0.0"))
	assert.ErrorIs(t, err, ErrBotExists)

	// broken config is skipped
	require.NoError(t, g.ForBot("broken").UpsertFile(ctx, "", model.BotConfigFile, []byte("{")))

	bots, err := svc.GetBots(ctx)
	require.NoError(t, err)
	require.Len(t, bots, 2)
	assert.Equal(t, "faq", bots[0].ID)
	assert.Equal(t, "11.9.0", bots[0].Version)
	assert.Equal(t, "welcome", bots[1].ID)

	bot, err := svc.FindBotByID(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Bot welcome", bot.Name)

	_, err = svc.FindBotByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrBotNotFound)
}
