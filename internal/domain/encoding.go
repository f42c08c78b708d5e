package domain

// ScoreEncoding identifies one of the two fixed score scales. Its value is the
// score_max tag stored with every criterion score.
type ScoreEncoding int

const (
	EncodingDiscrete   ScoreEncoding = 2
	EncodingContinuous ScoreEncoding = 10
)

// ScoreMax returns the score_max tag carried on the wire for this encoding.
func (e ScoreEncoding) ScoreMax() int {
	return int(e)
}

// Valid reports whether e is one of the two supported encodings.
func (e ScoreEncoding) Valid() bool {
	return e == EncodingDiscrete || e == EncodingContinuous
}

func (e ScoreEncoding) String() string {
	switch e {
	case EncodingDiscrete:
		return "discrete"
	case EncodingContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// Modality is the input mode governing one editing session.
type Modality string

const (
	ModalityContinuous Modality = "continuous"
	ModalityDiscrete   Modality = "discrete"
)

// Encoding returns the score encoding used by the modality.
func (m Modality) Encoding() ScoreEncoding {
	if m == ModalityDiscrete {
		return EncodingDiscrete
	}
	return EncodingContinuous
}

// Direction is the way the criteria cycle moves. Down is forward.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)
