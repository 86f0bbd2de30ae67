package equipment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/solarsizer/internal/models"
)

func ids(entries []models.EquipmentEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestRegistryAdd(t *testing.T) {
	t.Run("should create entries with defaults", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		assert.Equal(t, int64(1), entry.ID)
		assert.Equal(t, models.TypeRefrigeration, entry.Type)
		assert.Equal(t, "150", entry.PowerW.String())
		assert.Equal(t, "1", entry.Quantity.String())
		assert.Equal(t, "8", entry.DailyHours.String())
		assert.Equal(t, "0.9", entry.PowerFactor.String())
		assert.Equal(t, "1", entry.PeakToNominalRatio.String())
	})

	t.Run("should never reuse identifiers", func(t *testing.T) {
		r := NewRegistry()
		first := r.Add()
		r.Remove(first.ID)
		second := r.Add()

		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, []int64{second.ID}, ids(r.Snapshot()))
	})

	t.Run("should keep registries isolated", func(t *testing.T) {
		a := NewRegistry()
		b := NewRegistry()
		a.Add()
		a.Add()

		assert.Equal(t, int64(1), b.Add().ID)
	})
}

func TestRegistryOrder(t *testing.T) {
	t.Run("should preserve insertion order without duplicates for random add/remove", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))

		for round := 0; round < 50; round++ {
			r := NewRegistry()
			var expected []int64

			for step := 0; step < 40; step++ {
				if len(expected) == 0 || rng.Intn(3) > 0 {
					expected = append(expected, r.Add().ID)
					continue
				}
				idx := rng.Intn(len(expected))
				r.Remove(expected[idx])
				expected = append(expected[:idx:idx], expected[idx+1:]...)
			}

			got := ids(r.Snapshot())
			require.Equal(t, expected, got)

			seen := make(map[int64]bool)
			for _, id := range got {
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
			}
		}
	})

	t.Run("should leave the snapshot unchanged after add then remove", func(t *testing.T) {
		r := NewRegistry()
		r.Add()
		_, err := r.UpdateField(1, FieldPowerW, "300")
		require.NoError(t, err)
		r.Add()

		before := r.Snapshot()
		entry := r.Add()
		r.Remove(entry.ID)

		assert.Equal(t, before, r.Snapshot())
	})

	t.Run("should ignore removal of unknown ids", func(t *testing.T) {
		r := NewRegistry()
		r.Add()

		r.Remove(99)
		assert.Equal(t, 1, r.Len())
	})
}

func TestRegistryUpdateField(t *testing.T) {
	t.Run("should keep literal decimal values", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		updated, err := r.UpdateField(entry.ID, FieldDailyHours, "0.5")
		require.NoError(t, err)
		assert.Equal(t, "0.5", updated.DailyHours.String())

		for _, v := range []string{"0.50", "8.0", "1e1", "150.00"} {
			updated, err = r.UpdateField(entry.ID, FieldDailyHours, v)
			require.NoError(t, err)
			assert.Equal(t, v, updated.DailyHours.String())
		}
	})

	t.Run("should accept out-of-range values without clamping", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		updated, err := r.UpdateField(entry.ID, FieldPowerW, "-20")
		require.NoError(t, err)
		assert.Equal(t, "-20", updated.PowerW.String())

		updated, err = r.UpdateField(entry.ID, FieldPowerFactor, "1.7")
		require.NoError(t, err)
		assert.Equal(t, "1.7", updated.PowerFactor.String())
	})

	t.Run("should reject non numeric values", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		_, err := r.UpdateField(entry.ID, FieldQuantity, "two")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("should reject unknown fields and entries", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		_, err := r.UpdateField(entry.ID, Field("colour"), "red")
		assert.ErrorIs(t, err, ErrUnknownField)

		_, err = r.UpdateField(42, FieldPowerW, "10")
		assert.ErrorIs(t, err, ErrEntryNotFound)
	})

	t.Run("should update type through the type field", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		updated, err := r.UpdateField(entry.ID, FieldType, "water_pump")
		require.NoError(t, err)
		assert.Equal(t, models.TypeWaterPump, updated.Type)
	})
}

func TestRegistryOnTypeChanged(t *testing.T) {
	t.Run("should expose advanced fields only for other", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		visible, err := r.OnTypeChanged(entry.ID, models.TypeOther)
		require.NoError(t, err)
		assert.True(t, visible)

		visible, err = r.OnTypeChanged(entry.ID, models.TypeTelevision)
		require.NoError(t, err)
		assert.False(t, visible)
	})

	t.Run("should keep advanced fields on the entry regardless of type", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		_, err := r.OnTypeChanged(entry.ID, models.TypeOther)
		require.NoError(t, err)
		_, err = r.UpdateField(entry.ID, FieldPowerFactor, "0.75")
		require.NoError(t, err)
		_, err = r.OnTypeChanged(entry.ID, models.TypeLEDLighting)
		require.NoError(t, err)

		got, ok := r.Get(entry.ID)
		require.True(t, ok)
		assert.Equal(t, "0.75", got.PowerFactor.String())
		assert.Equal(t, "1", got.PeakToNominalRatio.String())
	})

	t.Run("should reject unknown types", func(t *testing.T) {
		r := NewRegistry()
		entry := r.Add()

		_, err := r.OnTypeChanged(entry.ID, models.EquipmentType("geyser"))
		assert.ErrorIs(t, err, ErrInvalidValue)

		got, _ := r.Get(entry.ID)
		assert.Equal(t, models.TypeRefrigeration, got.Type)
	})
}
