package repositories

import (
	"context"
	"os"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sooqna/sooqna_backend/models"
)

// Default commission percentages, used when no config document exists.
const (
	DefaultAgentPercent    = 20
	DefaultOperatorPercent = 10
)

// ConfigRepository reads the active commission configuration. The engine
// treats it as a snapshot: it is fetched once per pipeline or job run and
// never written here.
type ConfigRepository struct {
	collection *mongo.Collection
}

func NewConfigRepository(db *mongo.Database) *ConfigRepository {
	return &ConfigRepository{collection: db.Collection("commissionConfigs")}
}

func (r *ConfigRepository) GetCommissionConfig(ctx context.Context) (models.CommissionConfig, error) {
	var cfg models.CommissionConfig
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return defaultConfig(), nil
	}
	if err != nil {
		return models.CommissionConfig{}, err
	}
	return cfg, nil
}

// defaultConfig falls back to env-configured percentages so a fresh
// deployment computes sensible splits before the config document is seeded.
func defaultConfig() models.CommissionConfig {
	return models.CommissionConfig{
		AgentPercent:    envPercent("COMMISSION_AGENT_PERCENT", DefaultAgentPercent),
		OperatorPercent: envPercent("COMMISSION_OPERATOR_PERCENT", DefaultOperatorPercent),
	}
}

func envPercent(key string, fallback int64) int64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 && v <= 100 {
			return v
		}
	}
	return fallback
}
