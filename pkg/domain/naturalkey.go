package domain

import "fmt"

// NaturalKey describes the unique attributes of b.
func (b Binding) NaturalKey() string {
	return fmt.Sprintf(
		"(regulator=%d, batch=%s, replicate=%d, source=%d)",
		b.RegulatorID, b.Batch, b.Replicate, b.SourceID,
	)
}

// NaturalKey describes the unique attributes of e.
func (e Expression) NaturalKey() string {
	return fmt.Sprintf(
		"(regulator=%d, batch=%s, strain=%s, replicate=%d, control=%s, mechanism=%s, restriction=%s, time=%v, source=%d)",
		e.RegulatorID, e.Batch, e.Strain, e.Replicate, e.Control, e.Mechanism, e.Restriction, e.Time, e.SourceID,
	)
}

// NaturalKey describes the unique attributes of s.
func (s PromoterSetSig) NaturalKey() string {
	return fmt.Sprintf("(binding=%d, promoter=%d, background=%d)", s.BindingID, s.PromoterID, s.BackgroundID)
}

// NaturalKey describes the unique attributes of r.
func (r RankResponse) NaturalKey() string {
	return fmt.Sprintf("(promotersetsig=%d, expression=%d)", r.PromoterSetSigID, r.ExpressionID)
}
