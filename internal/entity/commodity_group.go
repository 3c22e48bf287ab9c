package entity

// CommodityGroup is one entry of the fixed classification taxonomy.
// The taxonomy is reference data: loaded once, never mutated by the pipeline.
type CommodityGroup struct {
	ID       int32  `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// CommodityClassification is the transient result of classifying a request
// into the taxonomy. A nil CommodityGroupID means classification was rejected.
type CommodityClassification struct {
	CommodityGroupID   *int32  `json:"commodity_group_id"`
	CommodityGroupName string  `json:"commodity_group_name"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning,omitempty"`
}
