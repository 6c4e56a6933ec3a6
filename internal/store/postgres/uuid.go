package postgres

import (
	"github.com/google/uuid"

	"github.com/pageza/fleet-replanner/internal/domain"
)

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func formatUUID(id domain.VanID) string {
	return uuid.UUID(id).String()
}
