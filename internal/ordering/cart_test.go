package ordering

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddAndRemove(t *testing.T) {
	cart := NewCart()

	cart.AddLine(1, "hot_1", "Борщ", 150)
	line := cart.AddLine(1, "hot_1", "Борщ", 150)
	assert.Equal(t, 2, line.Quantity)

	assert.Equal(t, LineDecremented, cart.RemoveOne(1, "hot_1"))
	assert.Equal(t, 1, cart.Quantity(1, "hot_1"))
	assert.Equal(t, LineRemoved, cart.RemoveOne(1, "hot_1"))
	assert.Equal(t, LineAbsent, cart.RemoveOne(1, "hot_1"))
	assert.Empty(t, cart.Snapshot(1))
}

func TestCart_QuantityNeverZeroOrNegative(t *testing.T) {
	cart := NewCart()
	rng := rand.New(rand.NewSource(42))
	keys := []string{"hot_1", "hot_2", "fav_abc"}
	expected := map[string]int{}

	for i := 0; i < 2000; i++ {
		key := keys[rng.Intn(len(keys))]
		if rng.Intn(2) == 0 {
			cart.AddLine(7, key, key, 10)
			expected[key]++
		} else {
			cart.RemoveOne(7, key)
			if expected[key] > 0 {
				expected[key]--
			}
		}

		for _, line := range cart.Snapshot(7) {
			require.Greater(t, line.Quantity, 0, "line %s stored with quantity %d", line.Key, line.Quantity)
		}
	}

	for _, key := range keys {
		assert.Equal(t, expected[key], cart.Quantity(7, key))
	}
	for _, line := range cart.Snapshot(7) {
		assert.NotZero(t, expected[line.Key])
	}
}

func TestCart_SnapshotIsACopy(t *testing.T) {
	cart := NewCart()
	cart.AddLine(1, "hot_1", "Борщ", 150)
	cart.AddLine(1, "hot_2", "Хліб", 10)

	snap := cart.Snapshot(1)
	snap[0].Quantity = 99
	cart.AddLine(1, "hot_1", "Борщ", 150)

	assert.Equal(t, 99, snap[0].Quantity)
	fresh := cart.Snapshot(1)
	assert.Equal(t, []string{"hot_1", "hot_2"}, []string{fresh[0].Key, fresh[1].Key})
	assert.Equal(t, 2, fresh[0].Quantity)
	assert.Equal(t, int64(310), Total(fresh))
}

func TestCart_UsersAreIsolated(t *testing.T) {
	cart := NewCart()
	cart.AddLine(1, "hot_1", "Борщ", 150)
	cart.SetActiveTable(1, "5")

	assert.Empty(t, cart.Snapshot(2))
	_, ok := cart.ActiveTable(2)
	assert.False(t, ok)

	cart.Clear(1)
	assert.Empty(t, cart.Snapshot(1))
	table, ok := cart.ActiveTable(1)
	assert.True(t, ok)
	assert.Equal(t, "5", table)

	cart.ClearActiveTable(1)
	_, ok = cart.ActiveTable(1)
	assert.False(t, ok)
}
