package credpool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fanscore/internal/adapters/credpool"
	"github.com/okian/fanscore/internal/domain/model"
	"github.com/okian/fanscore/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeStore records credential state changes in memory.
type fakeStore struct {
	mu      sync.Mutex
	creds   []model.Credential
	touches map[int64]int
	loadErr error
}

func newFakeStore(n int) *fakeStore {
	s := &fakeStore{touches: make(map[int64]int)}
	for i := 1; i <= n; i++ {
		s.creds = append(s.creds, model.Credential{ID: int64(i), APIKey: "key", Active: true})
	}
	return s
}

func (s *fakeStore) Credentials(_ context.Context) ([]model.Credential, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Credential, len(s.creds))
	copy(out, s.creds)
	return out, nil
}

func (s *fakeStore) SetCredentialActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.creds {
		if s.creds[i].ID == id {
			s.creds[i].Active = active
		}
	}
	return nil
}

func (s *fakeStore) TouchCredential(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches[id]++
	return nil
}

func (s *fakeStore) active(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.creds {
		if c.ID == id {
			return c.Active
		}
	}
	return false
}

func TestPoolRotation(t *testing.T) {
	Convey("Given a pool over three credentials", t, func() {
		ctx := context.Background()
		store := newFakeStore(3)
		pool, err := credpool.New(ctx, store)
		So(err, ShouldBeNil)

		Convey("When Next is called repeatedly", func() {
			var ids []int64
			for i := 0; i < 6; i++ {
				cred, err := pool.Next(ctx)
				So(err, ShouldBeNil)
				ids = append(ids, cred.ID)
			}

			Convey("Then credentials rotate round-robin", func() {
				So(ids, ShouldResemble, []int64{1, 2, 3, 1, 2, 3})
			})

			Convey("Then each use is recorded in the store", func() {
				So(store.touches[1], ShouldEqual, 2)
				So(store.touches[2], ShouldEqual, 2)
				So(store.touches[3], ShouldEqual, 2)
			})
		})

		Convey("When credential 1 exceeds its quota", func() {
			first, err := pool.Next(ctx)
			So(err, ShouldBeNil)
			So(first.ID, ShouldEqual, 1)
			pool.ReportFailure(ctx, first, credpool.ReasonQuotaExceeded)

			Convey("Then only the remaining credentials rotate", func() {
				var ids []int64
				for i := 0; i < 4; i++ {
					cred, err := pool.Next(ctx)
					So(err, ShouldBeNil)
					ids = append(ids, cred.ID)
				}
				So(ids, ShouldResemble, []int64{2, 3, 2, 3})
			})

			Convey("Then the deactivation is persisted", func() {
				So(store.active(1), ShouldBeFalse)
				So(pool.ActiveCount(), ShouldEqual, 2)
				So(pool.Size(), ShouldEqual, 3)
			})
		})

		Convey("When a failure is transient", func() {
			cred, err := pool.Next(ctx)
			So(err, ShouldBeNil)
			pool.ReportFailure(ctx, cred, credpool.ReasonOther)

			Convey("Then the credential stays in rotation", func() {
				So(pool.ActiveCount(), ShouldEqual, 3)
				So(store.active(cred.ID), ShouldBeTrue)
			})
		})
	})
}

func TestPoolExhaustion(t *testing.T) {
	Convey("Given a pool whose credentials all failed", t, func() {
		ctx := context.Background()
		store := newFakeStore(2)
		pool, err := credpool.New(ctx, store)
		So(err, ShouldBeNil)

		for i := 0; i < 2; i++ {
			cred, err := pool.Next(ctx)
			So(err, ShouldBeNil)
			pool.ReportFailure(ctx, cred, credpool.ReasonInvalidKey)
		}

		Convey("When Next is called", func() {
			_, err := pool.Next(ctx)

			Convey("Then it reports no credentials", func() {
				So(err, ShouldEqual, credpool.ErrNoCredentials)
			})
		})
	})
}

func TestPoolProbe(t *testing.T) {
	Convey("Given a pool with a deactivated credential and a probe", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := newFakeStore(2)
		var (
			probeMu    sync.Mutex
			probeCalls int
			probeErr   = errors.New("still over quota")
		)
		probe := func(_ context.Context, _ model.Credential) error {
			probeMu.Lock()
			defer probeMu.Unlock()
			probeCalls++
			return probeErr
		}

		pool, err := credpool.New(ctx, store,
			credpool.WithProbeFunc(probe),
			credpool.WithProbeInterval(10*time.Millisecond),
		)
		So(err, ShouldBeNil)

		cred, err := pool.Next(ctx)
		So(err, ShouldBeNil)
		pool.ReportFailure(ctx, cred, credpool.ReasonQuotaExceeded)

		done := make(chan struct{})
		go func() {
			pool.RunProbe(ctx)
			close(done)
		}()

		Convey("When the probe keeps failing", func() {
			time.Sleep(50 * time.Millisecond)

			Convey("Then the credential stays inactive", func() {
				probeMu.Lock()
				calls := probeCalls
				probeMu.Unlock()
				So(calls, ShouldBeGreaterThan, 0)
				So(pool.ActiveCount(), ShouldEqual, 1)
			})
		})

		Convey("When the probe starts succeeding", func() {
			probeMu.Lock()
			probeErr = nil
			probeMu.Unlock()
			time.Sleep(50 * time.Millisecond)

			Convey("Then the credential returns to rotation", func() {
				So(pool.ActiveCount(), ShouldEqual, 2)
				So(store.active(cred.ID), ShouldBeTrue)
			})
		})

		cancel()
		<-done
	})
}

func TestPoolLoadFailure(t *testing.T) {
	Convey("Given a store that cannot be read", t, func() {
		store := &fakeStore{loadErr: errors.New("disk gone")}

		Convey("When the pool is built", func() {
			_, err := credpool.New(context.Background(), store)

			Convey("Then construction fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
