package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/di/providers"
	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/listing"
	"github.com/linkstash/linkstash/internal/service"
	"github.com/linkstash/linkstash/internal/share"
	"github.com/linkstash/linkstash/internal/store"
)

type silentUI struct{}

func (silentUI) Notice(string)               {}
func (silentUI) OpenSignIn()                 {}
func (silentUI) Saved(*domain.SavedItem)     {}
func (silentUI) Error(error)                 {}
func (silentUI) OpenManualEntry(share.Draft) {}

func testOverrides(t *testing.T, backend string) config.Overrides {
	t.Helper()
	dir := t.TempDir()
	return config.Overrides{
		EnvFile:  filepath.Join(dir, "missing.env"),
		DataPath: dir,
		Backend:  backend,
		UserID:   "user-alice",
		LogLevel: "error",
	}
}

func TestContainer_CaptureAndList(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			injector := NewContainer(testOverrides(t, backend))
			t.Cleanup(func() { injector.Shutdown() })
			require.NoError(t, Bootstrap(injector))

			capture := do.MustInvoke[*service.CaptureService](injector)
			item, err := capture.CaptureAndSave(ctx, service.CaptureRequest{
				URL:      "https://a.test/x",
				TagNames: []string{"Go", "go"},
			})
			require.NoError(t, err)
			require.Len(t, item.Tags, 1)

			engine := do.MustInvoke[*providers.ListingHandle](injector)
			require.NoError(t, engine.LoadInitial(ctx))
			snap := engine.Snapshot()
			require.Len(t, snap.Items, 1)
			assert.Equal(t, "https://a.test/x", snap.Items[0].URL)
		})
	}
}

func TestContainer_ListingOptions(t *testing.T) {
	injector := NewContainer(testOverrides(t, config.BackendSQLite))
	t.Cleanup(func() { injector.Shutdown() })

	var snapshots int
	do.ProvideValue(injector, listing.Options{OnChange: func(listing.Snapshot) { snapshots++ }})

	engine := do.MustInvoke[*providers.ListingHandle](injector)
	require.NoError(t, engine.LoadInitial(context.Background()))
	assert.Positive(t, snapshots)
}

func TestContainer_ShareIntakeNeedsUI(t *testing.T) {
	injector := NewContainer(testOverrides(t, config.BackendSQLite))
	t.Cleanup(func() { injector.Shutdown() })

	_, err := do.Invoke[*providers.ShareIntakeHandle](injector)
	require.Error(t, err)

	do.ProvideValue[share.UI](injector, silentUI{})
	intake, err := do.Invoke[*providers.ShareIntakeHandle](injector)
	require.NoError(t, err)

	require.NoError(t, intake.Receive(context.Background(), share.Payload{Data: share.Text("https://a.test/shared")}))

	items := do.MustInvoke[*service.ItemService](injector)
	list, err := items.List(context.Background(), store.ItemQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://a.test/shared", list[0].URL)
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	o := testOverrides(t, "postgres")
	injector := NewContainer(o)
	t.Cleanup(func() { injector.Shutdown() })

	assert.Error(t, Bootstrap(injector))
}
