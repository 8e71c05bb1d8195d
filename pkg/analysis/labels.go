package analysis

//CarrierClass is the model class index mapped to the ball carrier role when a detection carries no label
const CarrierClass = 0

//DefenderClass is the model class index mapped to the defender role
const DefenderClass = 1

//AttackerClass is the model class index mapped to the attacker role
const AttackerClass = 2

//Role is what a detection means for the derivation rule
type Role int

const (
	RoleNone Role = iota
	RoleCarrier
	RoleDefender
	RoleAttacker
)

//DefaultCarrierLabels are the label spellings recognized as the ball carrier
var DefaultCarrierLabels = []string{"BALL_CARRIER", "ball_carrier", "carrier"}

//DefaultDefenderLabels are the label spellings recognized as a defender
var DefaultDefenderLabels = []string{"DEFENDER", "defender"}

//DefaultAttackerLabels are the label spellings recognized as an attacker
var DefaultAttackerLabels = []string{"ATTACKER", "attacker"}

//DefaultFallbackByIndex maps bare class indices to role labels for models
//that report no category name. The ordering is model specific, so deployments
//override it from configuration rather than relying on this table.
var DefaultFallbackByIndex = map[int]string{
	CarrierClass:  "BALL_CARRIER",
	DefenderClass: "DEFENDER",
	AttackerClass: "ATTACKER",
}

//ClassifierConfig is the injectable label-to-role mapping
type ClassifierConfig struct {
	CarrierLabels   []string
	DefenderLabels  []string
	AttackerLabels  []string
	FallbackByIndex map[int]string
}

//Classifier assigns a role to each detection by exact label match, with the
//index table as a fallback for unlabeled detections
type Classifier struct {
	carrier  map[string]bool
	defender map[string]bool
	attacker map[string]bool
	fallback map[int]string
}

//NewClassifier builds a Classifier from given config. Empty fields fall back
//to the defaults above.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if len(cfg.CarrierLabels) == 0 {
		cfg.CarrierLabels = DefaultCarrierLabels
	}
	if len(cfg.DefenderLabels) == 0 {
		cfg.DefenderLabels = DefaultDefenderLabels
	}
	if len(cfg.AttackerLabels) == 0 {
		cfg.AttackerLabels = DefaultAttackerLabels
	}
	if len(cfg.FallbackByIndex) == 0 {
		cfg.FallbackByIndex = DefaultFallbackByIndex
	}
	return &Classifier{
		carrier:  toSet(cfg.CarrierLabels),
		defender: toSet(cfg.DefenderLabels),
		attacker: toSet(cfg.AttackerLabels),
		fallback: cfg.FallbackByIndex,
	}
}

func toSet(labels []string) map[string]bool {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	return set
}
