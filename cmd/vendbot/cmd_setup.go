package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/vendbot/internal/config"
	"github.com/user/vendbot/internal/salefeed"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("vendbot setup")
		fmt.Println("Press Enter to accept the value shown in brackets.")
		fmt.Println()

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token", cfg.Telegram.Token)

		operator := prompt(scanner, "Operator Telegram user id", formatID(cfg.Telegram.OperatorID))
		if operator != "" {
			id, err := strconv.ParseInt(operator, 10, 64)
			if err != nil {
				return fmt.Errorf("parse operator id: %w", err)
			}
			cfg.Telegram.OperatorID = id
		}

		cfg.Razorpay.KeyID = prompt(scanner, "Razorpay key id", cfg.Razorpay.KeyID)
		cfg.Razorpay.KeySecret = prompt(scanner, "Razorpay key secret", cfg.Razorpay.KeySecret)
		cfg.Razorpay.WebhookSecret = prompt(scanner, "Razorpay webhook secret", cfg.Razorpay.WebhookSecret)
		cfg.HTTP.PublicURL = prompt(scanner, "Public webhook URL", cfg.HTTP.PublicURL)
		cfg.HTTP.Addr = prompt(scanner, "Listen address", cfg.HTTP.Addr)

		// Optional infrastructure
		cfg.Redis.Addr = prompt(scanner, "Redis address (optional)", cfg.Redis.Addr)
		brokers := prompt(scanner, "Kafka brokers, comma separated (optional)", strings.Join(cfg.Kafka.Brokers, ","))
		cfg.Kafka.Brokers = salefeed.SplitBrokers(brokers)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		if err := cfg.Validate(); err != nil {
			fmt.Println("Warning:", err)
		}
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
