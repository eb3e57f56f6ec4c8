package scoring

const (
	StageNovelty       = "novelty"
	StageInventiveness = "inventiveness"
	StageUtility       = "utility"
)

// Invention is the applicant-supplied description being evaluated.
type Invention struct {
	Title            string
	Description      string
	TechnicalField   string
	TechnicalContent string
}

// NoveltyResult is the parsed novelty stage response.
type NoveltyResult struct {
	Analysis    string
	Score       float64
	Innovations []string
	TokensUsed  int
}

// InventivenessResult is the parsed inventiveness stage response.
type InventivenessResult struct {
	Analysis   string
	Score      float64
	NonObvious bool
	TokensUsed int
}

// UtilityResult is the parsed utility stage response.
type UtilityResult struct {
	Analysis                string
	Score                   float64
	IndustrialApplicability bool
	TokensUsed              int
}
