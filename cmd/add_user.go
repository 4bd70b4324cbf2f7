package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"conference-central/database"
	"conference-central/model"
)

var addUserCmd = &cobra.Command{
	Use:   "add-user <login>",
	Short: "Create or replace a login account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddUser,
}

func init() {
	addUserCmd.Flags().String("email", "", "account email")
	addUserCmd.Flags().String("name", "", "display name")
}

func runAddUser(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Driver == "memory" {
		return errors.New("add-user needs a persistent store; use --store mongo or postgres")
	}
	ctx := cmd.Context()

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	login := args[0]
	if name == "" {
		name = login
	}

	store, err := database.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	user := &model.UserData{Login: login, HashedPassword: string(hash), Email: email, DisplayName: name}
	if err := store.Put(ctx, model.AccountKey(login), user); err != nil {
		return err
	}
	logger.Info(ctx, "account saved", "login", login)
	return nil
}

// readPassword prompts on a terminal and reads a single line otherwise.
func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
