package status

import (
	"context"
	"testing"
	"time"

	"github.com/Sagara39/canteen-kiosk/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupTestChannel(t *testing.T) *Channel {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewChannel(client.Database("kiosk_test"), rdb)
}

func TestPublishTap_ThenGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)
	ctx := context.Background()

	require.NoError(t, sut.PublishTap(ctx, "TAG42"))

	rec, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TAG42", rec.TagID)
}

func TestClaim_ConsumesExactlyOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)
	ctx := context.Background()

	require.NoError(t, sut.PublishTap(ctx, "TAG42"))

	tag, err := sut.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TAG42", tag)

	// the slot is now empty; a second claim must lose
	_, err = sut.Claim(ctx)
	assert.ErrorIs(t, err, ErrNoTap)

	rec, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, rec.TagID)
}

func TestClaim_EmptyMailbox(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)

	_, err := sut.Claim(context.Background())
	assert.ErrorIs(t, err, ErrNoTap)
}

func TestPublishTap_OverwritesPrevious(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)
	ctx := context.Background()

	require.NoError(t, sut.PublishTap(ctx, "FIRST"))
	require.NoError(t, sut.PublishTap(ctx, "SECOND"))

	tag, err := sut.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SECOND", tag, "the mailbox holds one slot, last write wins")
}

func TestClear_ResetsTagAndMessage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)
	ctx := context.Background()

	require.NoError(t, sut.PublishTap(ctx, "TAG42"))
	require.NoError(t, sut.SetMessage(ctx, domain.MessageRegistered))
	require.NoError(t, sut.Clear(ctx))

	rec, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, rec.TagID)
	assert.Equal(t, domain.MessageNone, rec.Message)
}

func TestSetMessage_KeepsTagSlot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)
	ctx := context.Background()

	require.NoError(t, sut.PublishTap(ctx, "TAG42"))
	require.NoError(t, sut.SetMessage(ctx, domain.MessageUnregistered))

	rec, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TAG42", rec.TagID)
	assert.Equal(t, domain.MessageUnregistered, rec.Message)
}

func TestGet_MissingRecordReadsEmpty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)

	rec, err := sut.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.TagID)
}

func TestSubscribe_DeliversPublishedTaps(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taps, err := sut.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, sut.PublishTap(ctx, "TAG42"))

	select {
	case got := <-taps:
		assert.Equal(t, "TAG42", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no tap notification received")
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	sut := setupTestChannel(t)

	ctx, cancel := context.WithCancel(context.Background())
	taps, err := sut.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-taps:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond, "channel should close after cancel")
}
