package domain

// TypeKind enumerates the shapes a parameter value may take.
type TypeKind int

const (
	TypeString TypeKind = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeList
	TypeMap
	TypeEnum
	TypeUnion
)

// Format is an additional textual constraint on string-typed parameters.
type Format int

const (
	FormatNone Format = iota
	FormatURL         // must parse as an absolute URL
	FormatUUID        // must match the UUID v4 textual grammar
)

// TypeSpec declares the type contract of a single parameter.
type TypeSpec struct {
	Kind    TypeKind
	Elem    *TypeSpec  // element type when Kind == TypeList
	Enum    []string   // allowed values when Kind == TypeEnum
	Members []TypeSpec // alternatives when Kind == TypeUnion
	Format  Format     // string format constraint, FormatNone otherwise
}

// Constructors for the common TypeSpec shapes.

func String() TypeSpec     { return TypeSpec{Kind: TypeString} }
func URLString() TypeSpec  { return TypeSpec{Kind: TypeString, Format: FormatURL} }
func UUIDString() TypeSpec { return TypeSpec{Kind: TypeString, Format: FormatUUID} }
func Int() TypeSpec        { return TypeSpec{Kind: TypeInt} }
func Float() TypeSpec      { return TypeSpec{Kind: TypeFloat} }
func Bool() TypeSpec       { return TypeSpec{Kind: TypeBool} }
func Map() TypeSpec        { return TypeSpec{Kind: TypeMap} }

func ListOf(elem TypeSpec) TypeSpec {
	return TypeSpec{Kind: TypeList, Elem: &elem}
}

func EnumOf(values ...string) TypeSpec {
	return TypeSpec{Kind: TypeEnum, Enum: values}
}

func UnionOf(members ...TypeSpec) TypeSpec {
	return TypeSpec{Kind: TypeUnion, Members: members}
}

// RuleKind tags the consensus merge strategy declared for a parameter.
type RuleKind int

const (
	RuleExactMatch RuleKind = iota
	RuleSemanticSimilarity
	RuleModeSelection
	RuleUnionMerge
	RuleStructuralMerge
	RulePercentile
	RuleWaitParameter
	RuleFirstNonNil
)

// ConsensusRule is the tagged merge strategy for reconciling N sampled
// values of one parameter into a single agreed value.
type ConsensusRule struct {
	Kind      RuleKind
	Threshold float64 // RuleSemanticSimilarity: minimum average cosine similarity
	P         int     // RulePercentile: rank in [0, 100]
}

func ExactMatch() ConsensusRule    { return ConsensusRule{Kind: RuleExactMatch} }
func ModeSelection() ConsensusRule { return ConsensusRule{Kind: RuleModeSelection} }
func UnionMerge() ConsensusRule    { return ConsensusRule{Kind: RuleUnionMerge} }
func StructuralMerge() ConsensusRule {
	return ConsensusRule{Kind: RuleStructuralMerge}
}
func FirstNonNil() ConsensusRule   { return ConsensusRule{Kind: RuleFirstNonNil} }
func WaitParameter() ConsensusRule { return ConsensusRule{Kind: RuleWaitParameter} }

func SemanticSimilarity(threshold float64) ConsensusRule {
	return ConsensusRule{Kind: RuleSemanticSimilarity, Threshold: threshold}
}

func Percentile(p int) ConsensusRule {
	return ConsensusRule{Kind: RulePercentile, P: p}
}

// ActionSchema is the immutable parameter contract for one action kind.
// Schemas are defined once at process start and never mutated.
type ActionSchema struct {
	Kind        ActionKind
	Description string

	// Required and Optional preserve declaration order.
	Required []string
	Optional []string

	Types map[string]TypeSpec
	Rules map[string]ConsensusRule

	// XorGroups lists mutually exclusive parameter sets; exactly one
	// member of each group must be present.
	XorGroups [][]string

	// Priority orders kinds from conservative (low) to risky (high).
	// Globally unique across all kinds.
	Priority int

	// WaitRequired marks kinds whose effects warrant a wait before the
	// agent's next step.
	WaitRequired bool
}

// HasParam reports whether name is a declared (required or optional)
// parameter of the schema.
func (s *ActionSchema) HasParam(name string) bool {
	for _, p := range s.Required {
		if p == name {
			return true
		}
	}
	for _, p := range s.Optional {
		if p == name {
			return true
		}
	}
	return false
}
