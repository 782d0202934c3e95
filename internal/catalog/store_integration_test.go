package catalog

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/genome-trait-server/internal/database"
	"github.com/genome-trait-server/internal/domain"
)

func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func seedCatalog(t *testing.T, db *database.DB) {
	ctx := context.Background()

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO gwas_associations
			(rsid, trait, p_value, effect_allele, effect_type, effect_value, risk_allele_frequency, reference_id)
		VALUES
			('rs429358', 'Alzheimer''s disease', '1E-20', 'C', 'odds_ratio', '3.68', '0.15', '19734903'),
			('rs429358', 'Parental lifespan',    '2E-15', 'C', 'beta',       '0.1',  '0.15', '31638909'),
			('rs429358', 'Alzheimer''s disease', '5E-8',  'T', 'odds_ratio', '1.2',  '0.85', '28714976'),
			('rs7903146', 'Type 2 diabetes',     '1E-30', 'T', 'odds_ratio', '1.4',  '0.3',  '17463249')
	`)
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO clinvar_variants
			(rsid, gene, accession, clinical_significance, condition, review_status, number_submitters)
		VALUES
			('rs429358', 'APOE', 'RCV000019455', 'Likely pathogenic', 'Alzheimer disease 2', 'reviewed by expert panel', 3),
			('rs429358', 'APOE', 'RCV000019456', 'Uncertain significance', 'Familial hypercholesterolemia', 'criteria provided, single submitter', 1)
	`)
	require.NoError(t, err)
}

func TestPostgresStore_MatchAssociations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedCatalog(t, db)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	store, err := NewPostgresStore(db.Pool, Config{}, logger)
	require.NoError(t, err)

	ctx := context.Background()
	variants := []domain.UserVariant{
		{ID: "rs429358", Chromosome: "19", Position: "44908822", Genotype: "CT"},
		{ID: "rs7903146", Chromosome: "10", Position: "112998590", Genotype: "CC"},
		{ID: "rs9999999", Chromosome: "1", Position: "1", Genotype: "AA"},
	}

	matches, err := store.MatchAssociations(ctx, variants)
	require.NoError(t, err)

	// rs429358 CT matches both the C-allele and T-allele rows.
	require.Len(t, matches["rs429358"], 3)

	// rs7903146 CC carries neither effect allele; rs9999999 is not in the
	// catalog. Both yield no entry, not an error.
	assert.NotContains(t, matches, "rs7903146")
	assert.NotContains(t, matches, "rs9999999")

	// A repeat batch is served from the pair cache with identical results.
	again, err := store.MatchAssociations(ctx, variants)
	require.NoError(t, err)
	assert.Len(t, again["rs429358"], 3)
}

func TestPostgresStore_MatchClinical(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedCatalog(t, db)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	store, err := NewPostgresStore(db.Pool, Config{}, logger)
	require.NoError(t, err)

	ctx := context.Background()
	matches, err := store.MatchClinical(ctx, []string{"rs429358", "rs9999999"})
	require.NoError(t, err)

	require.Len(t, matches["rs429358"], 2)
	assert.Equal(t, "APOE", matches["rs429358"][0].Gene)
	assert.NotContains(t, matches, "rs9999999")
}
