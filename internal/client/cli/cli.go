// Package cli реализует команды консольного клиента: аутентификация,
// работа со словарем, повторения и синхронизация.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/kotobako/internal/client/auth"
	"github.com/iudanet/kotobako/internal/client/iocli"
	"github.com/iudanet/kotobako/internal/client/sync"
	"github.com/iudanet/kotobako/internal/client/vocab"
)

// passwordEnvVar - переменная окружения с master password
const passwordEnvVar = "KOTOBAKO_MASTER_PASSWORD"

// Passwords - неинтерактивные источники master password
type Passwords struct {
	FromFile string // путь к файлу с паролем
	FromArgs string // пароль из аргумента командной строки
}

// Cli связывает команды с клиентскими сервисами
type Cli struct {
	io          iocli.IO
	authService *auth.Service
	store       *vocab.Store
	syncService *sync.Service
}

// New создает CLI поверх клиентских сервисов
func New(io iocli.IO, authService *auth.Service, store *vocab.Store, syncService *sync.Service) *Cli {
	return &Cli{
		io:          io,
		authService: authService,
		store:       store,
		syncService: syncService,
	}
}

// masterPassword получает master password по приоритету:
// 1. переменная окружения KOTOBAKO_MASTER_PASSWORD
// 2. файл из --password-file
// 3. аргумент --password
// 4. интерактивный запрос
func (c *Cli) masterPassword(passwords Passwords) (string, error) {
	if envPassword := os.Getenv(passwordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	if passwords.FromFile != "" {
		content, err := os.ReadFile(passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	if passwords.FromArgs != "" {
		return passwords.FromArgs, nil
	}

	password, err := c.io.ReadPassword("Master password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

// PrintUsage печатает справку по командам
func PrintUsage() {
	fmt.Println("kotobako - personal vocabulary store")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kotobako [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version             Show version information")
	fmt.Println("  --server URL          Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH             Path to local database (default: kotobako.db)")
	fmt.Println("  --password PASSWORD   Master password (prefer env var or file)")
	fmt.Println("  --password-file PATH  Path to file containing master password")
	fmt.Println()
	fmt.Println("Master password priority (highest to lowest):")
	fmt.Println("  1. " + passwordEnvVar + " environment variable")
	fmt.Println("  2. --password-file")
	fmt.Println("  3. --password")
	fmt.Println("  4. Interactive prompt")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register              Register a new account")
	fmt.Println("  login                 Log in and store encrypted tokens")
	fmt.Println("  logout                Remove local session")
	fmt.Println("  status                Show session status")
	fmt.Println("  add                   Add a vocabulary entry")
	fmt.Println("  list                  List entries (all or by date)")
	fmt.Println("  get ID                Show a single entry")
	fmt.Println("  search QUERY          Search entries by substring")
	fmt.Println("  delete ID             Delete an entry")
	fmt.Println("  review ID             Record a review with a rating")
	fmt.Println("  export                Export all entries as JSON")
	fmt.Println("  import FILE           Import entries from a JSON file")
	fmt.Println("  rebuild-index         Rebuild search index from partitions")
	fmt.Println("  pending               Show number of unsynced changes")
	fmt.Println("  sync                  Synchronize with the server")
}
