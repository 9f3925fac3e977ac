package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDSNDefaults(t *testing.T) {
	dsn := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "grocery"}.DSN()

	assert.Equal(t, "host=db user=u password=p dbname=grocery port=5432 sslmode=disable TimeZone=UTC", dsn)
}

func TestPostgresDSNOverrides(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: "6432", User: "u", Password: "p", DBName: "g", SSLMode: "require"}.DSN()

	assert.Contains(t, dsn, "port=6432")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url")
	assert.ErrorContains(t, err, "invalid Redis URL")
}
