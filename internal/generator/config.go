package generator

// Config drives the synthetic data generator.
type Config struct {
	NumUsers            int
	EndorsementsPerUser int
	ApprovalRate        float64
	MissingScoreChance  float64
	Seed                int64
}

// DefaultConfig returns baseline settings for a demo-sized dataset.
func DefaultConfig() Config {
	return Config{
		NumUsers:            500,
		EndorsementsPerUser: 4,
		ApprovalRate:        0.7,
		MissingScoreChance:  0.1,
		Seed:                42,
	}
}
