package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/memory"
	"github.com/hupe1980/agentforge/model"
	"github.com/hupe1980/agentforge/store"
	"github.com/hupe1980/agentforge/tool"
)

func testDefaults() Defaults {
	return Defaults{
		Model:          model.NewMockModel("default-model", "mock"),
		Tools:          []tool.Tool{tool.NewCalculator()},
		HistoryWindow:  3,
		IncludeHistory: true,
	}
}

func testRequired(storeKey string) Required {
	return Required{
		Name:        "Test Agent",
		Description: "An agent under test.",
		StoreKey:    storeKey,
	}
}

func TestBuild_DefaultsApplied(t *testing.T) {
	b := NewBuilder(testDefaults())

	d, err := b.Build(testRequired("agent-a"), func(o *Options) {
		o.Conversation = store.NewInMemory("agent-a")
	})
	require.NoError(t, err)

	assert.Equal(t, "Test Agent", d.Name())
	assert.Equal(t, "agent-a", d.StoreKey())
	assert.Equal(t, 3, d.HistoryWindow())
	assert.Equal(t, []string{"calculator"}, d.Tools())
	assert.False(t, d.HasKnowledge())
	assert.False(t, d.IncludesMemories())
}

func TestBuild_OverridesWinPerField(t *testing.T) {
	b := NewBuilder(testDefaults())
	override := model.NewMockModel("override-model", "mock")

	d, err := b.Build(testRequired("agent-a"), func(o *Options) {
		o.Conversation = store.NewInMemory("agent-a")
		o.Model = override
		o.HistoryWindow = 7
		// Tools untouched: the default set must survive.
	})
	require.NoError(t, err)

	assert.Equal(t, 7, d.HistoryWindow())
	assert.Equal(t, []string{"calculator"}, d.Tools())
}

func TestBuild_ExplicitEmptyToolsIsNotDefault(t *testing.T) {
	b := NewBuilder(testDefaults())

	d, err := b.Build(testRequired("agent-a"), func(o *Options) {
		o.Conversation = store.NewInMemory("agent-a")
		o.Tools = []tool.Tool{}
	})
	require.NoError(t, err)

	assert.Empty(t, d.Tools())
}

func TestBuild_MemoriesFlagOverride(t *testing.T) {
	defaults := testDefaults()
	defaults.Memories = memory.NewInMemoryStore()
	defaults.IncludeMemories = true
	b := NewBuilder(defaults)

	withMemories, err := b.Build(testRequired("agent-a"), func(o *Options) {
		o.Conversation = store.NewInMemory("agent-a")
	})
	require.NoError(t, err)
	assert.True(t, withMemories.IncludesMemories())

	withoutMemories, err := b.Build(testRequired("agent-b"), func(o *Options) {
		o.Conversation = store.NewInMemory("agent-b")
		o.IncludeMemories = false
	})
	require.NoError(t, err)
	assert.False(t, withoutMemories.IncludesMemories())
}

func TestBuild_EmptyStoreKey(t *testing.T) {
	b := NewBuilder(testDefaults())

	_, err := b.Build(testRequired(""))
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store_key", cfgErr.Setting)
}

func TestBuild_EmptyName(t *testing.T) {
	b := NewBuilder(testDefaults())

	req := testRequired("agent-a")
	req.Name = ""
	_, err := b.Build(req)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "name", cfgErr.Setting)
}

func TestBuild_DuplicateStoreKey(t *testing.T) {
	b := NewBuilder(testDefaults())

	_, err := b.Build(testRequired("same-key"), func(o *Options) {
		o.Conversation = store.NewInMemory("same-key")
	})
	require.NoError(t, err)

	_, err = b.Build(testRequired("same-key"), func(o *Options) {
		o.Conversation = store.NewInMemory("same-key")
	})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store_key", cfgErr.Setting)
	assert.Equal(t, "same-key", cfgErr.Value)
}

func TestBuild_NoModelAnywhere(t *testing.T) {
	defaults := testDefaults()
	defaults.Model = nil
	b := NewBuilder(defaults)

	_, err := b.Build(testRequired("agent-a"), func(o *Options) {
		o.Conversation = store.NewInMemory("agent-a")
	})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "model", cfgErr.Setting)
}

func TestBuild_NoStoreAnywhere(t *testing.T) {
	b := NewBuilder(testDefaults())

	_, err := b.Build(testRequired("agent-a"))
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "store", cfgErr.Setting)
}
