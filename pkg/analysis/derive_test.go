package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

//det builds a detection whose bounding box has given vertical center
func det(label string, index int, score, centerY float64) Detection {
	return Detection{
		Label: label,
		Index: index,
		Score: score,
		Box:   Box{OriginX: 10, OriginY: centerY - 25, Width: 40, Height: 50},
	}
}

func TestCountDefendersInFront(t *testing.T) {
	c := NewClassifier(ClassifierConfig{})

	t.Run("counts defenders above the carrier", func(t *testing.T) {
		count := c.CountDefendersInFront([]Detection{
			det("BALL_CARRIER", -1, 0.9, 100),
			det("DEFENDER", -1, 0.8, 50),  //in front (smaller vertical center)
			det("DEFENDER", -1, 0.8, 150), //behind
		})
		assert.Equal(t, 1, count)
	})

	t.Run("no carrier means zero, not an error", func(t *testing.T) {
		count := c.CountDefendersInFront([]Detection{
			det("DEFENDER", -1, 0.8, 50),
			det("DEFENDER", -1, 0.8, 60),
		})
		assert.Equal(t, 0, count)
	})

	t.Run("empty detection list means zero", func(t *testing.T) {
		assert.Equal(t, 0, c.CountDefendersInFront(nil))
	})

	t.Run("highest scoring carrier wins", func(t *testing.T) {
		count := c.CountDefendersInFront([]Detection{
			det("carrier", -1, 0.4, 10),  //would see no defenders in front
			det("BALL_CARRIER", -1, 0.9, 200),
			det("DEFENDER", -1, 0.8, 50),
			det("DEFENDER", -1, 0.8, 100),
		})
		assert.Equal(t, 2, count)
	})

	t.Run("attackers and unknown labels never count", func(t *testing.T) {
		count := c.CountDefendersInFront([]Detection{
			det("BALL_CARRIER", -1, 0.9, 100),
			det("ATTACKER", -1, 0.8, 50),
			det("REFEREE", -1, 0.8, 50),
		})
		assert.Equal(t, 0, count)
	})

	t.Run("ties on the vertical center do not count as in front", func(t *testing.T) {
		count := c.CountDefendersInFront([]Detection{
			det("BALL_CARRIER", -1, 0.9, 100),
			det("DEFENDER", -1, 0.8, 100),
		})
		assert.Equal(t, 0, count)
	})
}

func TestRoleClassification(t *testing.T) {
	c := NewClassifier(ClassifierConfig{})

	t.Run("exact label match per role", func(t *testing.T) {
		assert.Equal(t, RoleCarrier, c.RoleOf(det("ball_carrier", -1, 0.9, 0)))
		assert.Equal(t, RoleDefender, c.RoleOf(det("defender", -1, 0.9, 0)))
		assert.Equal(t, RoleAttacker, c.RoleOf(det("ATTACKER", -1, 0.9, 0)))
	})

	t.Run("empty label falls back to the class index", func(t *testing.T) {
		assert.Equal(t, RoleCarrier, c.RoleOf(det("", CarrierClass, 0.9, 0)))
		assert.Equal(t, RoleDefender, c.RoleOf(det("", DefenderClass, 0.9, 0)))
		assert.Equal(t, RoleAttacker, c.RoleOf(det("", AttackerClass, 0.9, 0)))
	})

	t.Run("unrecognized labels and indices are dropped", func(t *testing.T) {
		assert.Equal(t, RoleNone, c.RoleOf(det("REFEREE", -1, 0.9, 0)))
		assert.Equal(t, RoleNone, c.RoleOf(det("", 7, 0.9, 0)))
		assert.Equal(t, RoleNone, c.RoleOf(det("", -1, 0.9, 0)))
	})

	t.Run("label wins over index when both are present", func(t *testing.T) {
		assert.Equal(t, RoleDefender, c.RoleOf(det("DEFENDER", CarrierClass, 0.9, 0)))
	})

	t.Run("whitespace-only labels fall back", func(t *testing.T) {
		assert.Equal(t, RoleCarrier, c.RoleOf(det("   ", CarrierClass, 0.9, 0)))
	})
}

func TestClassifierConfigOverride(t *testing.T) {
	c := NewClassifier(ClassifierConfig{
		CarrierLabels:   []string{"QB"},
		DefenderLabels:  []string{"DB"},
		FallbackByIndex: map[int]string{5: "DB"},
	})

	assert.Equal(t, RoleCarrier, c.RoleOf(det("QB", -1, 0.9, 0)))
	assert.Equal(t, RoleDefender, c.RoleOf(det("", 5, 0.9, 0)))
	//default spellings are replaced, not merged
	assert.Equal(t, RoleNone, c.RoleOf(det("BALL_CARRIER", -1, 0.9, 0)))
	assert.Equal(t, RoleNone, c.RoleOf(det("", CarrierClass, 0.9, 0)))
}
