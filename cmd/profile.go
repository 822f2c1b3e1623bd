package cmd

import (
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/wireui/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage server profiles",
	Long:  `Manage server profiles: which websocket to connect to and how to render it.`,
}

func loadProfiles() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func printProfile(name string, profile config.Profile) {
	fmt.Printf("Profile: %s\n", name)
	fmt.Printf("URL: %s\n", profile.URL)
	panelKey := profile.PanelKey
	if panelKey == "" {
		panelKey = config.DefaultPanelKey + " (default)"
	}
	fmt.Printf("Panel: %s\n", panelKey)
	fmt.Printf("Scripts: %t\n", profile.Scripts)
}

// selectProfile asks for a profile when none was given on the command line.
func selectProfile(cfg *config.Config, args []string, label string) string {
	if len(args) > 0 {
		return args[0]
	}

	names := cfg.ProfileNames()
	if len(names) == 0 {
		log.Fatalf("No profiles available")
	}

	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return name
}

// promptProfile edits profile interactively, keeping current values as defaults.
func promptProfile(profile config.Profile) config.Profile {
	var err error

	urlPrompt := promptui.Prompt{
		Label:   "Server URL",
		Default: profile.URL,
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("url is required")
			}
			return nil
		},
	}
	profile.URL, err = urlPrompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}

	panelPrompt := promptui.Prompt{
		Label:   "Panel fragment key",
		Default: profile.PanelKey,
	}
	profile.PanelKey, err = panelPrompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}

	scriptsPrompt := promptui.Select{
		Label: "Run scripts embedded in panels",
		Items: []string{"yes", "no"},
	}
	if !profile.Scripts {
		scriptsPrompt.CursorPos = 1
	}
	_, answer, err := scriptsPrompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	profile.Scripts = answer == "yes"

	return profile
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProfiles()

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    URL: %s\n", profile.URL)
			if profile.PanelKey != "" {
				fmt.Printf("    Panel: %s\n", profile.PanelKey)
			}
			fmt.Printf("    Scripts: %t\n", profile.Scripts)
			fmt.Println()
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProfiles()

		profile, exists := cfg.Profile(args[0])
		if !exists {
			log.Fatalf("Profile '%s' does not exist", args[0])
		}
		printProfile(config.ProfileName(args[0]), profile)
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProfiles()

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			var err error
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profile(profileName); exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profileName, err := cfg.SetProfile(profileName, promptProfile(config.Profile{
			URL:      config.DefaultURL,
			PanelKey: config.DefaultPanelKey,
			Scripts:  true,
		}))
		if err != nil {
			log.Fatalf("Failed to add profile: %v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProfiles()
		profileName := selectProfile(cfg, args, "Select profile to edit")

		profile, exists := cfg.Profile(profileName)
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}
		profileName, err := cfg.SetProfile(profileName, promptProfile(profile))
		if err != nil {
			log.Fatalf("Failed to update profile: %v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var removeProfileCmd = &cobra.Command{
	Use:     "remove [profile-name]",
	Aliases: []string{"delete"},
	Short:   "Remove a profile",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProfiles()
		profileName := selectProfile(cfg, args, "Select profile to remove")

		profileName = config.ProfileName(profileName)
		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Remove profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Removal cancelled")
			return
		}

		if err := cfg.Remove(profileName); err != nil {
			log.Fatalf("Failed to remove profile: %v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' removed, active profile is '%s'\n", profileName, cfg.ActiveProfile)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProfiles()
		profileName := selectProfile(cfg, args, "Select profile to switch to")

		if err := cfg.Use(profileName); err != nil {
			log.Fatalf("Failed to switch profile: %v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", cfg.ActiveProfile)
	},
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(removeProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
