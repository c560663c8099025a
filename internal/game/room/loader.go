package room

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlRoomsFile is the top-level YAML structure for a room registry file.
type yamlRoomsFile struct {
	Rooms []yamlRoom `yaml:"rooms"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxPlayers  int    `yaml:"max_players"`
}

// LoadRegistryFromFile reads and validates a room registry YAML file.
//
// Precondition: path must point to a valid YAML rooms file.
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rooms file %s: %w", path, err)
	}
	return LoadRegistryFromBytes(data)
}

// LoadRegistryFromBytes parses and validates a room registry from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the rooms schema.
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadRegistryFromBytes(data []byte) (*Registry, error) {
	var file yamlRoomsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rooms YAML: %w", err)
	}

	rooms := make([]Room, 0, len(file.Rooms))
	for _, yr := range file.Rooms {
		rooms = append(rooms, Room{
			ID:          yr.ID,
			Name:        yr.Name,
			Description: strings.TrimSpace(yr.Description),
			MaxPlayers:  yr.MaxPlayers,
		})
	}

	reg, err := NewRegistry(rooms)
	if err != nil {
		return nil, fmt.Errorf("validating rooms: %w", err)
	}
	return reg, nil
}
