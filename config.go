package federator

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

type Config struct {
	Coordinator CoordinatorConfig `toml:"coordinator"`
	Trainer     TrainerConfig     `toml:"trainer"`
}

type CoordinatorConfig struct {
	URL          string `toml:"url"`
	OwnerAddress string `toml:"owner_address"`
	CallbackURL  string `toml:"callback_url"`
}

type TrainerConfig struct {
	Address     string `toml:"address"`
	IPFSURL     string `toml:"ipfs_url"`
	MQTTAddress string `toml:"mqtt_address"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
