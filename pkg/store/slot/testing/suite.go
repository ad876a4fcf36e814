package testing

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/slot"
)

// SlotTestSuite checks the slot.Slot contract. It is reusable across
// backends.
//
// Usage:
//
//	func TestMySlot(t *testing.T) {
//	    suite := &slottest.SlotTestSuite{
//	        NewSlot: func(t *testing.T) slot.Slot {
//	            return myslot.New(...)
//	        },
//	    }
//	    suite.Run(t)
//	}
type SlotTestSuite struct {
	// NewSlot returns a fresh, empty slot for each test. The suite closes it.
	NewSlot func(t *testing.T) slot.Slot
}

// Run executes all tests in the suite.
func (suite *SlotTestSuite) Run(t *testing.T) {
	t.Run("ReadEmpty", suite.testReadEmpty)
	t.Run("WriteThenRead", suite.testWriteThenRead)
	t.Run("Overwrite", suite.testOverwrite)
	t.Run("EmptyBlob", suite.testEmptyBlob)
	t.Run("LargeBlob", suite.testLargeBlob)
	t.Run("ReadReturnsCopy", suite.testReadReturnsCopy)
	t.Run("ConcurrentWrites", suite.testConcurrentWrites)
	t.Run("CanceledContext", suite.testCanceledContext)
}

func (suite *SlotTestSuite) newSlot(t *testing.T) slot.Slot {
	t.Helper()
	s := suite.NewSlot(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testContext() context.Context {
	return context.Background()
}

func (suite *SlotTestSuite) testReadEmpty(t *testing.T) {
	s := suite.newSlot(t)

	_, err := s.Read(testContext())
	assert.ErrorIs(t, err, slot.ErrSlotEmpty)
}

func (suite *SlotTestSuite) testWriteThenRead(t *testing.T) {
	s := suite.newSlot(t)
	ctx := testContext()

	require.NoError(t, s.Write(ctx, []byte("snapshot-1")))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot-1"), got)
}

func (suite *SlotTestSuite) testOverwrite(t *testing.T) {
	s := suite.newSlot(t)
	ctx := testContext()

	require.NoError(t, s.Write(ctx, []byte("a much longer first snapshot")))
	require.NoError(t, s.Write(ctx, []byte("short")))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), got)
}

func (suite *SlotTestSuite) testEmptyBlob(t *testing.T) {
	s := suite.newSlot(t)
	ctx := testContext()

	require.NoError(t, s.Write(ctx, []byte{}))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func (suite *SlotTestSuite) testLargeBlob(t *testing.T) {
	s := suite.newSlot(t)
	ctx := testContext()

	data := bytes.Repeat([]byte("0123456789abcdef"), 1<<16) // 1MB
	require.NoError(t, s.Write(ctx, data))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func (suite *SlotTestSuite) testReadReturnsCopy(t *testing.T) {
	s := suite.newSlot(t)
	ctx := testContext()

	data := []byte("snapshot")
	require.NoError(t, s.Write(ctx, data))
	data[0] = 'X'

	got, err := s.Read(ctx)
	require.NoError(t, err)
	got[1] = 'X'

	again, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot"), again)
}

func (suite *SlotTestSuite) testConcurrentWrites(t *testing.T) {
	s := suite.newSlot(t)
	ctx := testContext()

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Write(ctx, []byte(fmt.Sprintf("snapshot-%d", i))))
		}()
	}
	wg.Wait()

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^snapshot-[0-7]$`, string(got))
}

func (suite *SlotTestSuite) testCanceledContext(t *testing.T) {
	s := suite.newSlot(t)
	ctx, cancel := context.WithCancel(testContext())
	cancel()

	assert.ErrorIs(t, s.Write(ctx, []byte("x")), context.Canceled)
	_, err := s.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
