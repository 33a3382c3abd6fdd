package cooldown

import (
	"testing"
	"time"

	"github.com/sendcrew/reqbot/src/eventlog"
	"github.com/sendcrew/reqbot/src/params"
	"github.com/sendcrew/reqbot/src/shared/apperr"
	"github.com/sendcrew/reqbot/src/shared/data"
	"github.com/sendcrew/reqbot/src/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) (*Engine, *params.Store, *time.Time) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, data.Migrate(db))

	provider := data.NewProvider(db)
	events := eventlog.New(provider, nil, nil)
	paramStore := params.NewStore(provider, events)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(provider, paramStore, events)
	engine.now = func() time.Time { return now }

	return engine, paramStore, &now
}

func dur(d time.Duration) *time.Duration { return &d }

func TestManuallySetThenGet(t *testing.T) {
	engine, _, now := newTestEngine(t)

	err := engine.ManuallySet(types.CooldownEntityUser, "100", "mod", dur(48*time.Hour), "spam", false)
	require.NoError(t, err)

	current, err := engine.GetCurrent(types.CooldownEntityUser, "100")
	require.NoError(t, err)
	require.NotNil(t, current)
	require.NotNil(t, current.EndsAt)
	assert.WithinDuration(t, now.Add(48*time.Hour), *current.EndsAt, time.Second)
	assert.Equal(t, "mod", current.CasterUserID)
	assert.Equal(t, "spam", current.Reason)
}

func TestManuallySetNonPositiveDuration(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	err := engine.ManuallySet(types.CooldownEntityUser, "100", "mod", dur(-time.Hour), "", false)
	var pastErr EndInPastError
	require.ErrorAs(t, err, &pastErr)
}

func TestManuallySetRequiresForceToOverwrite(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "100", "mod", dur(time.Hour), "first", false))

	err := engine.ManuallySet(types.CooldownEntityUser, "100", "mod2", dur(2*time.Hour), "second", false)
	var onCd AlreadyOnCooldownError
	require.ErrorAs(t, err, &onCd)
	assert.Equal(t, "first", onCd.Current.Reason)

	// The confirm-then-force protocol: same call again with force applies.
	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "100", "mod2", dur(2*time.Hour), "second", true))

	current, err := engine.GetCurrent(types.CooldownEntityUser, "100")
	require.NoError(t, err)
	assert.Equal(t, "second", current.Reason)
	assert.Equal(t, "mod2", current.CasterUserID)
}

func TestManuallySetEndless(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityLevel, "9000", "mod", nil, "stolen level", false))

	current, err := engine.GetCurrent(types.CooldownEntityLevel, "9000")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, current.Endless())
}

func TestCastAfterRequestIsMonotonic(t *testing.T) {
	engine, paramStore, now := newTestEngine(t)
	require.NoError(t, paramStore.Update(params.PostRequestUserCooldown, "1d", "tester"))

	// Existing cooldown ends later than the candidate: must stay put.
	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "7", "mod", dur(72*time.Hour), "manual ban", false))
	require.NoError(t, engine.CastAfterRequest(types.CooldownEntityUser, "7", 41))

	current, err := engine.GetCurrent(types.CooldownEntityUser, "7")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(72*time.Hour), *current.EndsAt, time.Second)
	assert.Equal(t, "manual ban", current.Reason)

	// Existing cooldown shorter than the candidate: extended.
	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "8", "mod", dur(time.Hour), "short", false))
	require.NoError(t, engine.CastAfterRequest(types.CooldownEntityUser, "8", 42))

	current, err = engine.GetCurrent(types.CooldownEntityUser, "8")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(24*time.Hour), *current.EndsAt, time.Second)
	require.NotNil(t, current.CausingRequestID)
	assert.Equal(t, uint64(42), *current.CausingRequestID)
}

func TestCastAfterRequestNeverWeakensEndless(t *testing.T) {
	engine, paramStore, _ := newTestEngine(t)
	require.NoError(t, paramStore.Update(params.PostRequestUserCooldown, "1d", "tester"))

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "7", "mod", nil, "permabanned", false))
	require.NoError(t, engine.CastAfterRequest(types.CooldownEntityUser, "7", 43))

	current, err := engine.GetCurrent(types.CooldownEntityUser, "7")
	require.NoError(t, err)
	assert.True(t, current.Endless())
	assert.Equal(t, "permabanned", current.Reason)
}

func TestCastAfterRequestNullAndInfinite(t *testing.T) {
	engine, paramStore, _ := newTestEngine(t)

	require.NoError(t, paramStore.Update(params.PostRequestUserCooldown, "0", "tester"))
	require.NoError(t, engine.CastAfterRequest(types.CooldownEntityUser, "1", 1))
	current, err := engine.GetCurrent(types.CooldownEntityUser, "1")
	require.NoError(t, err)
	assert.Nil(t, current)

	require.NoError(t, paramStore.Update(params.PostRequestUserCooldown, "inf", "tester"))
	require.NoError(t, engine.CastAfterRequest(types.CooldownEntityUser, "1", 1))
	current, err = engine.GetCurrent(types.CooldownEntityUser, "1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, current.Endless())
}

func TestManuallyModify(t *testing.T) {
	engine, _, now := newTestEngine(t)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "5", "mod", dur(24*time.Hour), "", false))

	// Extend by 12h.
	require.NoError(t, engine.ManuallyModify(types.CooldownEntityUser, "5", "mod", 12*time.Hour, ""))
	current, err := engine.GetCurrent(types.CooldownEntityUser, "5")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(36*time.Hour), *current.EndsAt, time.Second)

	// Shrinking below now fails.
	err = engine.ManuallyModify(types.CooldownEntityUser, "5", "mod", -48*time.Hour, "")
	var pastErr EndInPastError
	require.ErrorAs(t, err, &pastErr)

	// With no current cooldown the delta starts from now.
	require.NoError(t, engine.ManuallyModify(types.CooldownEntityUser, "6", "mod", 2*time.Hour, ""))
	current, err = engine.GetCurrent(types.CooldownEntityUser, "6")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(2*time.Hour), *current.EndsAt, time.Second)
}

func TestManuallyModifyEndless(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "5", "mod", nil, "", false))

	err := engine.ManuallyModify(types.CooldownEntityUser, "5", "mod", time.Hour, "")
	assert.ErrorIs(t, err, ErrEndless)

	err = engine.ManuallyModify(types.CooldownEntityUser, "5", "mod", -time.Hour, "")
	assert.ErrorIs(t, err, ErrEndless)
}

func TestManuallyAmend(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	err := engine.ManuallyAmend(types.CooldownEntityUser, "5", "mod", "")
	assert.ErrorIs(t, err, apperr.ErrAlreadySatisfies)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "5", "mod", dur(time.Hour), "", false))
	require.NoError(t, engine.ManuallyAmend(types.CooldownEntityUser, "5", "mod", "appealed"))

	current, err := engine.GetCurrent(types.CooldownEntityUser, "5")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestExpiredCooldownsArePurgedOnRead(t *testing.T) {
	engine, _, now := newTestEngine(t)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "5", "mod", dur(time.Hour), "", false))

	*now = now.Add(2 * time.Hour)

	current, err := engine.GetCurrent(types.CooldownEntityUser, "5")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestListings(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "late", "mod", dur(72*time.Hour), "", false))
	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "soon", "mod", dur(time.Hour), "", false))
	require.NoError(t, engine.ManuallySet(types.CooldownEntityUser, "forever", "mod", nil, "", false))
	require.NoError(t, engine.ManuallySet(types.CooldownEntityLevel, "other-kind", "mod", dur(time.Hour), "", false))

	temporary, err := engine.ListTemporary(types.CooldownEntityUser, 10, 0)
	require.NoError(t, err)
	require.Len(t, temporary, 2)
	assert.Equal(t, "soon", temporary[0].EntityID)
	assert.Equal(t, "late", temporary[1].EntityID)

	endless, err := engine.ListEndless(types.CooldownEntityUser, 10, 0)
	require.NoError(t, err)
	require.Len(t, endless, 1)
	assert.Equal(t, "forever", endless[0].EntityID)
}

func TestStoreUnavailableDuringSwap(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	engine.provider.Close()

	_, err := engine.GetCurrent(types.CooldownEntityUser, "5")
	assert.ErrorIs(t, err, data.ErrStoreUnavailable)
}
