package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DynamoRegion   string
	DynamoEndpoint string

	ApplicationsTable               string
	ApplicationsByProfessionalIndex string
	JobsTable                       string
	JobsByClinicIndex               string
	ReferralsTable                  string
	ReferralsByReferredIndex        string
	ProfilesTable                   string

	NATSURL         string
	NATSConnTimeout time.Duration

	ClickHouseDSN          string
	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration
	ClickHouseUsername     string
	ClickHousePassword     string
	ClickHouseDatabase     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunLockTTL    time.Duration

	RunInterval   time.Duration
	Workers       int
	ReferralBonus int
	ShiftTimezone string

	OTelCollectorURL string
}

func LoadConfig() (*Config, error) {
	config := &Config{
		DynamoRegion:   getEnvString("DYNAMO_REGION", "us-east-1"),
		DynamoEndpoint: getEnvString("DYNAMO_ENDPOINT", ""),

		ApplicationsTable:               getEnvString("APPLICATIONS_TABLE", "dentipal-applications"),
		ApplicationsByProfessionalIndex: getEnvString("APPLICATIONS_BY_PROFESSIONAL_INDEX", "professionalUserSub-index"),
		JobsTable:                       getEnvString("JOBS_TABLE", "dentipal-jobs"),
		JobsByClinicIndex:               getEnvString("JOBS_BY_CLINIC_INDEX", "clinicId-jobId-index"),
		ReferralsTable:                  getEnvString("REFERRALS_TABLE", "dentipal-referrals"),
		ReferralsByReferredIndex:        getEnvString("REFERRALS_BY_REFERRED_INDEX", "referredUserSub-index"),
		ProfilesTable:                   getEnvString("PROFILES_TABLE", "dentipal-professional-profiles"),

		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		ClickHouseDSN:          getEnvString("CLICKHOUSE_DSN", "localhost:9000"),
		ClickHouseMaxOpenConns: getEnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: getEnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  getEnvDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),
		ClickHouseUsername:     getEnvString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:     getEnvString("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase:     getEnvString("CLICKHOUSE_DATABASE", "dentipal"),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RunLockTTL:    getEnvDuration("RUN_LOCK_TTL", 10*time.Minute),

		RunInterval:   getEnvDuration("RUN_INTERVAL", 15*time.Minute),
		Workers:       getEnvInt("SETTLEMENT_WORKERS", 10),
		ReferralBonus: getEnvInt("REFERRAL_BONUS", 50),
		ShiftTimezone: getEnvString("SHIFT_TIMEZONE", "UTC"),

		OTelCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),
	}

	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
