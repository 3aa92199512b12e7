package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

type Config struct {
	config *viper.Viper
}

func Load() (*Config, error) {
	env := os.Getenv(keyEnv)
	if len(env) == 0 {
		env = envLocal
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func (c *Config) GetPort() string {
	port := c.config.GetString("PORT")
	if len(port) == 0 {
		port = c.config.GetString("server.port")
	}
	if len(port) == 0 {
		port = "8000"
	}

	return port
}

// GetCorpusDir is the directory of one-file-per-page OCR text files.
func (c *Config) GetCorpusDir() string {
	corpusDir := c.config.GetString("CORPUS_DIR")
	if len(corpusDir) == 0 {
		corpusDir = c.config.GetString("corpus.dir")
	}
	if len(corpusDir) == 0 {
		corpusDir = "./corpus"
	}

	return corpusDir
}

func (c *Config) GetStoragePath() string {
	storagePath := c.config.GetString("STORAGE_PATH")
	if len(storagePath) == 0 {
		storagePath = c.config.GetString("database.storage_path")
	}
	if len(storagePath) == 0 {
		storagePath = "./indexes"
	}

	return storagePath
}

// GetIndexPath is the bleve index directory, relative to the storage path.
func (c *Config) GetIndexPath() string {
	indexPath := c.config.GetString("INDEX_PATH")
	if len(indexPath) == 0 {
		indexPath = c.config.GetString("database.index_path")
	}
	if len(indexPath) == 0 {
		indexPath = "pages.bleve"
	}

	return filepath.Join(c.GetStoragePath(), indexPath)
}

// GetKVDBPath is the bbolt metadata database file, relative to the storage path.
func (c *Config) GetKVDBPath() string {
	kvdbPath := c.config.GetString("KVDB_PATH")
	if len(kvdbPath) == 0 {
		kvdbPath = c.config.GetString("database.kvdb_path")
	}
	if len(kvdbPath) == 0 {
		kvdbPath = "metadata.db"
	}

	return filepath.Join(c.GetStoragePath(), kvdbPath)
}

// GetContextLines is the default context window for excerpt assembly.
func (c *Config) GetContextLines() int {
	lines := c.config.GetInt("CONTEXT_LINES")
	if lines == 0 {
		lines = c.config.GetInt("corpus.context_lines")
	}
	if lines == 0 {
		lines = 5
	}

	return lines
}

func (c *Config) GetGeminiAPIKey() string {
	key := c.config.GetString("GOOGLE_API_KEY")
	if len(key) == 0 {
		key = c.config.GetString("semantic.api_key")
	}

	return key
}

func (c *Config) GetVectorStoreURL() string {
	url := c.config.GetString("VECTOR_STORE_URL")
	if len(url) == 0 {
		url = c.config.GetString("semantic.vector_store_url")
	}

	return url
}

func (c *Config) GetVectorCollection() string {
	collection := c.config.GetString("VECTOR_COLLECTION")
	if len(collection) == 0 {
		collection = c.config.GetString("semantic.collection")
	}
	if len(collection) == 0 {
		collection = "marathi_history"
	}

	return collection
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
