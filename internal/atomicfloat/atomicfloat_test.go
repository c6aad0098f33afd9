package atomicfloat

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFloat64Store(t *testing.T) {
	Convey("When multiple writers race to Store distinct values", t, func() {
		f := New(0.0)
		numWriters := 100

		start := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Add(numWriters)
		for i := 0; i < numWriters; i++ {
			i := i
			go func() {
				<-start
				for !f.Store(float64(i)) {
				}
				wg.Done()
			}()
		}

		time.Sleep(10 * time.Millisecond)
		close(start)
		wg.Wait()

		Convey("the final value is one of the written values, not a torn bit pattern", func() {
			got := f.Load()
			found := false
			for i := 0; i < numWriters; i++ {
				if got == float64(i) {
					found = true
					break
				}
			}
			So(found, ShouldBeTrue)
		})
	})

	Convey("Given a fresh Float64", t, func() {
		f := New(3.5)

		Convey("Load returns the constructed value", func() {
			So(f.Load(), ShouldEqual, 3.5)
		})

		Convey("a single Store always succeeds", func() {
			ok := f.Store(9.25)
			So(ok, ShouldBeTrue)
			So(f.Load(), ShouldEqual, 9.25)
		})
	})
}
