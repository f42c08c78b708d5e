package scoring

import "github.com/tournesol-app/comparo/internal/domain"

// SelectModality decides the input modality of an editing session.
//
// A recorded score_max on the existing comparison's main criterion wins.
// Otherwise a coarse or absent pointer, or forceDiscrete, selects the
// discrete buttons. The caller must keep the result for the whole session.
func SelectModality(existing *domain.ComparisonDraft, mainCriterion string, pointerFine, forceDiscrete bool) (domain.Modality, error) {
	if cs, ok := existing.Score(mainCriterion); ok {
		enc, err := EncodingFor(cs.ScoreMax)
		if err != nil {
			return "", err
		}
		if enc == domain.EncodingDiscrete {
			return domain.ModalityDiscrete, nil
		}
		return domain.ModalityContinuous, nil
	}
	if !pointerFine || forceDiscrete {
		return domain.ModalityDiscrete, nil
	}
	return domain.ModalityContinuous, nil
}
