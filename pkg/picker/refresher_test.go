package picker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/datatug/filepick/pkg/files"
	"github.com/datatug/filepick/pkg/lister"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresher_Submit(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	delivered := make(chan Listing, 1)
	load := func(ctx context.Context, p string) lister.Result {
		return lister.Result{Path: p, IsDir: true, Entries: []files.Entry{dir(p + "/a")}}
	}
	r := NewRefresher(context.Background(), load, loop.Dispatch, func(l Listing) {
		delivered <- l
	})
	defer r.Close()

	r.Submit(ListRequest{Generation: 7, Path: "/x"})
	select {
	case l := <-delivered:
		assert.Equal(t, uint64(7), l.Generation)
		assert.Equal(t, "/x", l.Path)
		assert.Equal(t, []files.Entry{dir("/x/a")}, l.Entries)
	case <-time.After(5 * time.Second):
		t.Fatal("listing not delivered")
	}
}

func TestRefresher_Close(t *testing.T) {
	started := make(chan struct{})
	var delivered atomic.Int32
	load := func(ctx context.Context, p string) lister.Result {
		close(started)
		<-ctx.Done()
		return lister.Result{Path: p, Err: ctx.Err()}
	}
	r := NewRefresher(context.Background(), load, func(f func()) { f() }, func(Listing) {
		delivered.Add(1)
	})
	r.Submit(ListRequest{Generation: 1, Path: "/slow"})
	<-started

	r.Close()
	r.Close()
	assert.Equal(t, int32(0), delivered.Load(), "cancelled listings are not delivered")
	assert.False(t, r.Go(func(context.Context) {
		t.Error("must not run after close")
	}))
}

func TestRefresher_Stop_DoesNotWait(t *testing.T) {
	release := make(chan struct{})
	r := NewRefresher(context.Background(), nil, func(f func()) { f() }, nil)
	require.True(t, r.Go(func(ctx context.Context) {
		<-release
	}))
	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop waited for workers")
	}
	close(release)
	r.Close()
}
