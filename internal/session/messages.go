package session

import (
	"fmt"
	"strings"

	"github.com/solsmith/solsmith/internal/domain"
	"github.com/solsmith/solsmith/internal/gateway"
)

// Callback tokens carried in inline buttons.
const (
	cbCreateWallet  = "create_wallet"
	cbViewWallets   = "view_wallets"
	cbBackToMain    = "back_to_main"
	cbPatternPrefix = "pattern_prefix"
	cbPatternSuffix = "pattern_suffix"
)

const introText = `🌟 *Welcome to SOL SMITH* 🌟
━━━━━━━━━━━━━━━━━━━━━━

Your premium Solana wallet generator with custom address patterns.

*Available Commands:*
• /start - Display this welcome message
• /help - Show detailed help information

*Features:*
• Create wallets with custom address patterns
• Store and manage multiple wallets securely
• View wallet details anytime

Created with ❤️ by SOL SMITH team
━━━━━━━━━━━━━━━━━━━━━━`

const helpText = `*SOL SMITH - Advanced Help*
━━━━━━━━━━━━━━━━━━━━━━

*Wallet Creation Options:*
• *Starts With* - Generate an address beginning with your chosen characters
• *Ends With* - Generate an address ending with your chosen characters

*Tips for Pattern Selection:*
• Shorter patterns (2-3 chars) generate quickly
• Longer patterns may take significant time
• Case-sensitive (upper/lowercase matters)
• Only use valid Solana address characters

*Security Notes:*
• Your private keys are stored securely
• Never share your private keys
• Back up your wallet information

Need more help? Contact: @SolSmithSupport
━━━━━━━━━━━━━━━━━━━━━━`

func introMessage() gateway.Message {
	return gateway.Message{Text: introText, ParseMode: "Markdown"}
}

func helpMessage() gateway.Message {
	return gateway.Message{
		Text:      helpText,
		ParseMode: "Markdown",
		Buttons:   [][]gateway.Button{gateway.Row(backButton())},
	}
}

func backButton() gateway.Button {
	return gateway.Button{Label: "⬅️ Back to Main Menu", Data: cbBackToMain}
}

func mainMenuButtons() [][]gateway.Button {
	return [][]gateway.Button{gateway.Row(
		gateway.Button{Label: "Create Solana Wallet", Data: cbCreateWallet},
		gateway.Button{Label: "View My Wallets", Data: cbViewWallets},
	)}
}

func mainMenuMessage(name string) gateway.Message {
	return gateway.Message{
		Text:    fmt.Sprintf("Welcome %s! 👋\nUse the buttons below to manage your Solana wallets.", name),
		Buttons: mainMenuButtons(),
	}
}

func patternChoiceMessage() gateway.Message {
	return gateway.Message{
		Text: "How should your wallet address match the pattern?",
		Buttons: [][]gateway.Button{
			gateway.Row(
				gateway.Button{Label: "Starts With", Data: cbPatternPrefix},
				gateway.Button{Label: "Ends With", Data: cbPatternSuffix},
			),
			gateway.Row(backButton()),
		},
	}
}

func patternPromptMessage(kind domain.PatternKind) gateway.Message {
	text := "Please enter your desired wallet prefix:"
	if kind == domain.PatternSuffix {
		text = "Please enter your desired wallet suffix:"
	}
	return gateway.Message{Text: text, Buttons: [][]gateway.Button{gateway.Row(backButton())}}
}

func generatingMessage() gateway.Message {
	return gateway.Message{Text: "Generating Solana wallet..."}
}

func walletGeneratedMessage(rec domain.KeyRecord) gateway.Message {
	return gateway.Message{
		Text: fmt.Sprintf("New Wallet Generated\n\n<code>%s</code>\n\n<code>%s</code>",
			rec.PublicKey, rec.PrivateKey),
		ParseMode: "HTML",
		Buttons:   [][]gateway.Button{gateway.Row(backButton())},
	}
}

func generationFailedMessage() gateway.Message {
	return gateway.Message{
		Text:    "Error generating wallet. Please try again.",
		Buttons: [][]gateway.Button{gateway.Row(backButton())},
	}
}

func storageErrorMessage() gateway.Message {
	return gateway.Message{
		Text:    "Something went wrong while saving your data. Please try again.",
		Buttons: [][]gateway.Button{gateway.Row(backButton())},
	}
}

func invalidPatternMessage() gateway.Message {
	return gateway.Message{
		Text:    "That pattern contains characters that cannot appear in a Solana address. Please enter a pattern using base58 characters only:",
		Buttons: [][]gateway.Button{gateway.Row(backButton())},
	}
}

func emptyWalletsMessage() gateway.Message {
	return gateway.Message{
		Text:    `You have no wallets yet. Click "Create Solana Wallet" to generate one.`,
		Buttons: mainMenuButtons(),
	}
}

func walletListMessage(wallets []domain.KeyRecord) gateway.Message {
	var b strings.Builder
	b.WriteString("Your Wallets:\n\n")
	for i, w := range wallets {
		fmt.Fprintf(&b, "%d. <code>%s</code>\n", i+1, w.PublicKey)
	}
	b.WriteString("\nEnter the number of the wallet to view its private key:")
	return gateway.Message{
		Text:      b.String(),
		ParseMode: "HTML",
		Buttons:   [][]gateway.Button{gateway.Row(backButton())},
	}
}

func invalidSelectionMessage(count int) gateway.Message {
	return gateway.Message{
		Text:    fmt.Sprintf("Please enter a valid number between 1 and %d.", count),
		Buttons: [][]gateway.Button{gateway.Row(backButton())},
	}
}

func walletDetailMessage(index int, rec domain.KeyRecord) gateway.Message {
	return gateway.Message{
		Text: fmt.Sprintf("Selected Wallet #%d\n\nPublic Key:\n<code>%s</code>\n\nPrivate Key:\n<code>%s</code>",
			index, rec.PublicKey, rec.PrivateKey),
		ParseMode: "HTML",
	}
}
