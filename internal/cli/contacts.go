package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/tether/internal/config"
	"github.com/lazypower/tether/internal/engine"
	"github.com/lazypower/tether/internal/localstore"
	"github.com/lazypower/tether/internal/model"
	"github.com/lazypower/tether/internal/repo"
	"github.com/lazypower/tether/internal/store"
)

// openRepository picks the backend from config: "sqlite" opens the
// relational store, "local" the JSON blob store. TETHER_DB overrides the
// path for either.
func openRepository(cfg config.Config) (repo.Repository, string, error) {
	path := cfg.Database.Path
	if env := os.Getenv("TETHER_DB"); env != "" {
		path = env
	}

	switch cfg.Database.Driver {
	case "local":
		if path == "" {
			var err error
			path, err = localstore.DefaultDir()
			if err != nil {
				return nil, "", fmt.Errorf("resolve data dir: %w", err)
			}
		}
		s, err := localstore.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open local store: %w", err)
		}
		return s, "local (" + path + ")", nil
	default:
		if path == "" {
			var err error
			path, err = store.DefaultDBPath()
			if err != nil {
				return nil, "", fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open database: %w", err)
		}
		return db, "sqlite (" + path + ")", nil
	}
}

func closeRepository(r repo.Repository) {
	if db, ok := r.(*store.DB); ok {
		db.Close()
	}
}

// withRepository runs fn against the configured backend, under the scope
// the session provider resolved.
func withRepository(fn func(ctx context.Context, r repo.Repository, scope string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sessions, err := newSessionProvider(cfg)
	if err != nil {
		return err
	}
	r, _, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepository(r)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, r, sessions.Scope())
}

func printContactLine(c model.Contact) {
	line := fmt.Sprintf("%s  %s [%s]", c.ID, c.Name, c.Relationship)
	if !c.LastContactDate.IsZero() {
		line += fmt.Sprintf("  last contact %s", c.LastContactDate.Format("2006-01-02"))
	}
	fmt.Println(line)
}

// --- list command ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(ctx context.Context, r repo.Repository, scope string) error {
			contacts, err := r.List(ctx, scope)
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}
			if len(contacts) == 0 {
				fmt.Println("No contacts yet. Add one with: tether add")
				return nil
			}
			for _, c := range contacts {
				printContactLine(c)
			}
			return nil
		})
	},
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a contact with its conversations, reminders and insights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(ctx context.Context, r repo.Repository, scope string) error {
			c, err := r.Get(ctx, args[0], scope)
			if err != nil {
				return fmt.Errorf("get contact: %w", err)
			}
			if c == nil {
				fmt.Printf("No contact with id %s\n", args[0])
				return nil
			}

			fmt.Printf("%s [%s]\n", c.Name, c.Relationship)
			if c.Company != "" {
				fmt.Printf("  company: %s\n", c.Company)
			}
			if c.HowWeMet != "" {
				fmt.Printf("  how we met: %s\n", c.HowWeMet)
			}
			if c.WhereWeMet != "" {
				fmt.Printf("  where we met: %s\n", c.WhereWeMet)
			}
			if len(c.Tags) > 0 {
				fmt.Printf("  tags: %s\n", strings.Join(c.Tags, ", "))
			}
			if c.Notes != "" {
				fmt.Printf("  notes: %s\n", c.Notes)
			}

			if insights := engine.DeriveInsights(*c, time.Now().UTC()); len(insights) > 0 {
				fmt.Println("\nInsights:")
				for _, in := range insights {
					fmt.Printf("  - %s\n", in)
				}
			}

			if len(c.Conversations) > 0 {
				fmt.Println("\nConversations:")
				for _, conv := range c.Conversations {
					fmt.Printf("  %s  %s\n", conv.Date.Format("2006-01-02"), conv.Summary)
				}
			}

			if len(c.Reminders) > 0 {
				fmt.Println("\nReminders:")
				for _, rem := range c.Reminders {
					status := " "
					if rem.Completed {
						status = "x"
					}
					fmt.Printf("  [%s] %s  %s\n", status, rem.Date.Format("2006-01-02"), rem.Title)
				}
			}

			if len(c.PersonalDetails) > 0 {
				fmt.Println("\nDetails:")
				for _, d := range c.PersonalDetails {
					fmt.Printf("  (%s/%s) %s\n", d.Category, d.Importance, d.Detail)
				}
			}
			return nil
		})
	},
}

// --- add command ---

var (
	addRelationship string
	addCompany      string
	addHowWeMet     string
	addWhereWeMet   string
	addNotes        string
	addTags         []string
)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a contact",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(ctx context.Context, r repo.Repository, scope string) error {
			contact := model.Contact{
				Name:         strings.Join(args, " "),
				Relationship: model.ParseRelationship(addRelationship),
				Company:      addCompany,
				HowWeMet:     addHowWeMet,
				WhereWeMet:   addWhereWeMet,
				Notes:        addNotes,
				Tags:         addTags,
				FirstMetDate: time.Now().UTC(),
			}
			saved, err := r.Save(ctx, &contact, scope)
			if err != nil {
				return fmt.Errorf("save contact: %w", err)
			}
			fmt.Printf("Added %s (%s)\n", saved.Name, saved.ID)
			return nil
		})
	},
}

// --- search command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search contacts by name, tags, notes or how/where you met",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(ctx context.Context, r repo.Repository, scope string) error {
			query := strings.Join(args, " ")
			contacts, err := r.Search(ctx, query, scope)
			if err != nil {
				return fmt.Errorf("search contacts: %w", err)
			}
			if len(contacts) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, c := range contacts {
				printContactLine(c)
			}
			return nil
		})
	},
}

// --- upcoming command ---

var upcomingDays int

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show incomplete reminders due in the next days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(ctx context.Context, r repo.Repository, scope string) error {
			contacts, err := r.List(ctx, scope)
			if err != nil {
				return fmt.Errorf("list contacts: %w", err)
			}

			names := make(map[string]string, len(contacts))
			for _, c := range contacts {
				names[c.ID] = c.Name
			}

			reminders := engine.UpcomingReminders(contacts, time.Now().UTC(), upcomingDays)
			if len(reminders) == 0 {
				fmt.Println("Nothing due.")
				return nil
			}
			for _, rem := range reminders {
				fmt.Printf("%s  %-30s %s (%s)\n",
					rem.Date.Format("2006-01-02"), rem.Title, names[rem.ContactID], rem.Type)
			}
			return nil
		})
	},
}

func init() {
	addCmd.Flags().StringVarP(&addRelationship, "relationship", "r", "other", "friend, colleague, family, romantic, acquaintance, networking or other")
	addCmd.Flags().StringVar(&addCompany, "company", "", "Company")
	addCmd.Flags().StringVar(&addHowWeMet, "how", "", "How you met")
	addCmd.Flags().StringVar(&addWhereWeMet, "where", "", "Where you met")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Free-form notes")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")

	upcomingCmd.Flags().IntVarP(&upcomingDays, "days", "d", engine.DefaultWindowDays, "Lookahead window in days")
}
