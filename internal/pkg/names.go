package pkg

import (
	"crypto/rand"
	"math/big"
)

// surnames used for assigning display names to fresh clients.
var surnames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones",
	"Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
	"Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
	"Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris",
	"Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
}

// GenerateUsername - picks a random display name for a new client.
// Uniqueness among connected users is enforced by the registry.
func GenerateUsername() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(surnames))))
	if err != nil {
		return "Player"
	}

	return surnames[n.Int64()]
}
