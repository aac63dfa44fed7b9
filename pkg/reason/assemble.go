package reason

import (
	"github.com/triplehop/triplehop/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

// assembleContext walks the ranked path list in order and collects each
// path's triples into the evidence set, deduplicated by (subject, predicate,
// object). Assembly stops at MaxContextTriples, or earlier when the rendered
// context would exceed the token budget. Every evidence triple keeps the
// rank and rendering of the first path it was drawn from.
func (e *Engine) assembleContext(qc *QueryContext) {
	var encoder *tiktoken.Tiktoken
	if e.cfg.ContextTokenBudget > 0 {
		enc, err := tiktoken.GetEncoding(e.cfg.TokenEncoder)
		if err != nil {
			logger.Debug("[Reason] Token encoder unavailable, context budget skipped", "err", err)
		} else {
			encoder = enc
		}
	}

	seen := make(map[string]bool)
	evidence := make([]EvidenceTriple, 0, e.cfg.MaxContextTriples)
	usedTokens := 0

	for rank, path := range qc.Ranked {
		if len(evidence) >= e.cfg.MaxContextTriples {
			break
		}
		rendering := path.Render()
		for _, triple := range path.Triples {
			if len(evidence) >= e.cfg.MaxContextTriples {
				break
			}
			key := triple.Key()
			if seen[key] {
				continue
			}

			if encoder != nil {
				cost := len(encoder.Encode(triple.Render(), nil, nil))
				if usedTokens+cost > e.cfg.ContextTokenBudget {
					qc.Evidence = evidence
					return
				}
				usedTokens += cost
			}

			seen[key] = true
			evidence = append(evidence, EvidenceTriple{
				Triple:        triple,
				PathRank:      rank + 1,
				PathRendering: rendering,
			})
		}
	}

	qc.Evidence = evidence
}
