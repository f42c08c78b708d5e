package scoring

import (
	"fmt"
	"math"

	"github.com/tournesol-app/comparo/internal/domain"
)

// Scale is the valid range of one score encoding.
type Scale struct {
	Min  int
	Max  int
	Step int
}

// Contains reports whether v is a valid score on the scale.
func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// Values lists every valid score from Min to Max.
func (s Scale) Values() []int {
	out := make([]int, 0, (s.Max-s.Min)/s.Step+1)
	for v := s.Min; v <= s.Max; v += s.Step {
		out = append(out, v)
	}
	return out
}

// EncodingFor maps a score_max tag to its encoding.
func EncodingFor(scoreMax int) (domain.ScoreEncoding, error) {
	enc := domain.ScoreEncoding(scoreMax)
	if !enc.Valid() {
		return 0, fmt.Errorf("score_max %d: %w", scoreMax, domain.ErrUnknownEncoding)
	}
	return enc, nil
}

// ScaleFor returns the range and step for score_max 2 or 10.
func ScaleFor(scoreMax int) (Scale, error) {
	if _, err := EncodingFor(scoreMax); err != nil {
		return Scale{}, err
	}
	return Scale{Min: -scoreMax, Max: scoreMax, Step: 1}, nil
}

// ClampToScale clamps value into [-scoreMax, scoreMax].
func ClampToScale(value, scoreMax int) (int, error) {
	s, err := ScaleFor(scoreMax)
	if err != nil {
		return 0, err
	}
	return min(max(value, s.Min), s.Max), nil
}

// CheckScore returns ErrScoreOutOfRange when value is not on the scale.
func CheckScore(value, scoreMax int) error {
	s, err := ScaleFor(scoreMax)
	if err != nil {
		return err
	}
	if !s.Contains(value) {
		return fmt.Errorf("score %d not in [%d, %d]: %w", value, s.Min, s.Max, domain.ErrScoreOutOfRange)
	}
	return nil
}

// DetectEncoding reads the encoding from the main criterion's score_max.
// Without a main criterion score the default is continuous. Drafts mixing
// encodings are not repaired here.
func DetectEncoding(scores []domain.CriterionScore, mainCriterion string) (domain.ScoreEncoding, error) {
	for _, cs := range scores {
		if cs.Criterion == mainCriterion {
			return EncodingFor(cs.ScoreMax)
		}
	}
	return domain.EncodingContinuous, nil
}

// Normalize maps a score onto [-1, 1].
func Normalize(score, scoreMax int) (float64, error) {
	clamped, err := ClampToScale(score, scoreMax)
	if err != nil {
		return 0, err
	}
	return float64(clamped) / float64(scoreMax), nil
}

// Rescale converts a score between encodings, rounding half away from zero.
func Rescale(score, fromMax, toMax int) (int, error) {
	n, err := Normalize(score, fromMax)
	if err != nil {
		return 0, err
	}
	if _, err := ScaleFor(toMax); err != nil {
		return 0, err
	}
	return ClampToScale(int(math.Round(n*float64(toMax))), toMax)
}
