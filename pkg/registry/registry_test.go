package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpserve/mcpserve/pkg/pagination"
	"github.com/mcpserve/mcpserve/pkg/protocol"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New(DefaultConfig())

	require.NoError(t, r.RegisterTool(protocol.Tool{Name: "echo"}))
	require.NoError(t, r.RegisterResource(protocol.Resource{URI: "file:///readme", Name: "readme"}))
	require.NoError(t, r.RegisterPrompt(protocol.Prompt{Name: "summarize"}))

	tool, ok := r.Tool("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", tool.Name)

	res, ok := r.Resource("file:///readme")
	require.True(t, ok)
	assert.Equal(t, "readme", res.Name)

	_, ok = r.Tool("missing")
	assert.False(t, ok)
}

func TestNamespacesAreIndependent(t *testing.T) {
	r := New(DefaultConfig())
	require.NoError(t, r.RegisterTool(protocol.Tool{Name: "search"}))
	require.NoError(t, r.RegisterPrompt(protocol.Prompt{Name: "search"}))

	assert.Equal(t, 1, r.Len(KindTool))
	assert.Equal(t, 1, r.Len(KindPrompt))
}

func TestDuplicateNameRejected(t *testing.T) {
	r := New(DefaultConfig())
	require.NoError(t, r.RegisterTool(protocol.Tool{Name: "echo"}))

	err := r.RegisterTool(protocol.Tool{Name: "echo"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	// Case-sensitive names do not collide.
	assert.NoError(t, r.RegisterTool(protocol.Tool{Name: "Echo"}))
}

func TestEmptyNameRejected(t *testing.T) {
	r := New(DefaultConfig())
	assert.Error(t, r.RegisterTool(protocol.Tool{}))
}

func TestListPaginationCompleteness(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		pageSize  int
		wantPages int
	}{
		{"empty", 0, 10, 1},
		{"single item", 1, 10, 1},
		{"exact page", 10, 10, 1},
		{"several pages", 35, 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{MaxPageSize: tt.pageSize})
			for i := 0; i < tt.count; i++ {
				require.NoError(t, r.RegisterTool(protocol.Tool{Name: fmt.Sprintf("tool-%03d", i)}))
			}

			seen := make(map[string]bool)
			cursor := ""
			pages := 0
			for {
				page, next, err := r.Tools(cursor, 0)
				require.NoError(t, err)
				pages++
				for _, tool := range page {
					assert.False(t, seen[tool.Name], "tool %s listed twice", tool.Name)
					seen[tool.Name] = true
				}
				if next == "" {
					break
				}
				cursor = next
			}
			assert.Len(t, seen, tt.count)
			assert.Equal(t, tt.wantPages, pages)
		})
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := New(DefaultConfig())
	names := []string{"zeta", "alpha", "mu"}
	for _, name := range names {
		require.NoError(t, r.RegisterTool(protocol.Tool{Name: name}))
	}

	page, next, err := r.Tools("", 0)
	require.NoError(t, err)
	assert.Empty(t, next)
	require.Len(t, page, len(names))
	for i, tool := range page {
		assert.Equal(t, names[i], tool.Name)
	}
}

func TestListHonorsRequestedLimit(t *testing.T) {
	r := New(Config{MaxPageSize: 100})
	for i := 0; i < 30; i++ {
		require.NoError(t, r.RegisterTool(protocol.Tool{Name: fmt.Sprintf("tool-%02d", i)}))
	}

	page, next, err := r.Tools("", 10)
	require.NoError(t, err)
	assert.Len(t, page, 10)
	assert.NotEmpty(t, next)

	// A requested limit above the configured cap is reduced to it.
	capped := New(Config{MaxPageSize: 5})
	for i := 0; i < 30; i++ {
		require.NoError(t, capped.RegisterTool(protocol.Tool{Name: fmt.Sprintf("tool-%02d", i)}))
	}
	page, _, err = capped.Tools("", 20)
	require.NoError(t, err)
	assert.Len(t, page, 5)

	// Zero falls back to the configured cap.
	page, _, err = capped.Tools("", 0)
	require.NoError(t, err)
	assert.Len(t, page, 5)
}

func TestListBadCursor(t *testing.T) {
	r := New(DefaultConfig())
	_, _, err := r.Tools("not-a-cursor!!!", 0)
	assert.True(t, errors.Is(err, pagination.ErrInvalidCursor))
}

func TestSnapshot(t *testing.T) {
	r := New(Config{MaxPageSize: 2})
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, r.RegisterTool(protocol.Tool{Name: name}))
	}

	// Snapshot ignores the page bound.
	snap := r.Snapshot(KindTool)
	assert.Len(t, snap, 5)
	assert.Equal(t, "a", snap[0].(protocol.Tool).Name)
	assert.Nil(t, r.Snapshot(Kind("gadget")))
}

func TestListUnknownKind(t *testing.T) {
	r := New(DefaultConfig())
	_, _, err := r.List(Kind("gadget"), "", 0)
	assert.Error(t, err)
}
