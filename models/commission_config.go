package models

// CommissionConfig is the active percentage configuration, read once per
// pipeline or job run. Percents are whole integers (0-100). The engine never
// writes it; commissions already computed keep the split that was active
// when they were computed.
type CommissionConfig struct {
	AgentPercent    int64 `bson:"agentPercent" json:"agentPercent"`
	OperatorPercent int64 `bson:"operatorPercent" json:"operatorPercent"`
}
