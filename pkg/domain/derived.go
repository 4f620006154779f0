package domain

// CallingCardsBackground is an insertion file of transposons without a regulator.
type CallingCardsBackground struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	FileFormatID int64  `json:"fileformat"`
	FileKey      string `json:"file"`
	Notes        string `json:"notes"`
	Inserts
	Stamp
}

// PromoterSet is a bed-like file of promoter regions.
type PromoterSet struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	FileFormatID int64  `json:"fileformat"`
	FileKey      string `json:"file"`
	Notes        string `json:"notes"`
	Stamp
}

// PromoterSetSig is the significance of a Binding on each promoter of a PromoterSet.
//
// (BindingID, PromoterID, BackgroundID) is unique. BackgroundID is 0 unless the binding is calling cards.
type PromoterSetSig struct {
	ID           int64  `json:"id"`
	BindingID    int64  `json:"binding"`
	PromoterID   int64  `json:"promoter"`
	BackgroundID int64  `json:"background,omitempty"`
	FileFormatID int64  `json:"fileformat"`
	FileKey      string `json:"file"`
	Stamp
}

// RankResponse is the comparison of a PromoterSetSig against an Expression.
//
// (PromoterSetSigID, ExpressionID) is unique.
type RankResponse struct {
	ID                        int64   `json:"id"`
	PromoterSetSigID          int64   `json:"promotersetsig"`
	ExpressionID              int64   `json:"expression"`
	ExpressionEffectThreshold float64 `json:"expression_effect_threshold"`
	ExpressionPvalueThreshold float64 `json:"expression_pvalue_threshold"`
	Normalized                bool    `json:"normalized"`
	SignificantResponse       bool    `json:"significant_response"`
	FileFormatID              int64   `json:"fileformat"`
	FileKey                   string  `json:"file"`
	Stamp
}
