// Package economy implements the coin commands: earning through work,
// balance lookups, the reward shop and the admin coin adjustments.
package economy

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/member"
)

const (
	// CmdWork earns coins on an hourly cooldown.
	CmdWork = "work"
	// CmdBalance shows a member's coin balance.
	CmdBalance = "balance"
	// CmdShop opens the reward shop.
	CmdShop = "shop"
	// CmdBuy purchases a shop item directly.
	CmdBuy = "buy"
	// CmdAddCoins credits coins to a member.
	CmdAddCoins = "addcoins"
	// CmdRemoveCoins debits coins from a member.
	CmdRemoveCoins = "removecoins"

	// ComponentPrefix routes every shop button back to this package.
	ComponentPrefix = "shop:"

	// WorkCooldown is how long a member waits between work runs.
	WorkCooldown = time.Hour
	workEarnMin  = 10
	workEarnMax  = 60

	shopColor = 0xE6B325
)

// shopItem is one purchasable reward.
type shopItem struct {
	Name        string
	Price       int64
	Description string
	Emoji       string
	Color       int
}

// catalog lists the purchasable rewards in display order.
var catalog = []shopItem{
	{Name: "BGL", Price: 13000, Description: "1 BGL - Blue Gem Lock", Emoji: "💎", Color: 0x3498DB},
	{Name: "Steam Gift Card 10$", Price: 10000, Description: "10$ Steam Gift Card", Emoji: "🎮", Color: 0x1E1E1E},
	{Name: "Discord Nitro", Price: 8200, Description: "Discord Nitro", Emoji: "🚀", Color: 0x5865F2},
	{Name: "PayPal 10€", Price: 10000, Description: "10€ PayPal Payout", Emoji: "💸", Color: 0x169BD7},
	{Name: "PayPal 20€", Price: 19000, Description: "20€ PayPal Payout", Emoji: "💸", Color: 0x169BD7},
}

// workMessages are the flavor lines for a completed work run.
var workMessages = []string{
	"You worked at a local grocery store and earned %d coins.",
	"You delivered packages for a courier service and earned %d coins.",
	"You helped fix someone's computer and earned %d coins.",
	"You worked as a server at a restaurant and earned %d coins.",
	"You wrote an article for a website and earned %d coins.",
	"You walked several dogs in the neighborhood and earned %d coins.",
	"You tutored a student and earned %d coins.",
	"You helped someone move to a new apartment and earned %d coins.",
	"You sold some handmade crafts and earned %d coins.",
	"You worked a few hours at a coffee shop and earned %d coins.",
	"You did some gardening work for a neighbor and earned %d coins.",
	"You designed a logo for a small business and earned %d coins.",
	"You helped organize an event and earned %d coins.",
	"You fixed someone's leaky pipe and earned %d coins.",
	"You cleaned houses for a few hours and earned %d coins.",
}

// Service is the economy handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the economy handler.
var Handler = Service{}

// Init initializes the economy handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, db *gorm.DB) {
	if reg == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilRCDFatalLogMsg)
		return
	}

	h.cfg = cfg
	h.db = db

	itemChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(catalog))
	for _, item := range catalog {
		itemChoices = append(itemChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%s - %s coins", item.Name, humanize.Comma(item.Price)),
			Value: item.Name,
		})
	}

	commands := []*handler.Command{
		{
			Name:        CmdWork,
			Description: "Work to earn coins (can be used once per hour)",
			Run:         h.work,
		},
		{
			Name:        CmdBalance,
			Description: "Show a member's coin balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up, defaults to you",
				},
			},
			Run: h.balance,
		},
		{
			Name:        CmdShop,
			Description: "🛍️ Browse and purchase items from the shop",
			Run:         h.shop,
		},
		{
			Name:        CmdBuy,
			Description: "Purchase a shop item with your coins",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "item",
					Description: "Item to purchase",
					Required:    true,
					Choices:     itemChoices,
				},
			},
			Run: h.buy,
		},
		{
			Name:        CmdAddCoins,
			Description: "Add coins to a member's balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to credit",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Coins to add",
					Required:    true,
				},
			},
			Run: h.addCoins,
		},
		{
			Name:        CmdRemoveCoins,
			Description: "Remove coins from a member's balance",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to debit",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Coins to remove",
					Required:    true,
				},
			},
			Run: h.removeCoins,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}

	if err := reg.AddComponent(ComponentPrefix, h.component); err != nil {
		log.Fatal().Err(err).Msg("failed to register shop component route")
	}
}

func (h *Service) work(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := handler.CallerID(i)
	name := handler.CallerName(i)

	rec, err := member.GetOrCreate(h.db, i.GuildID, userID, name)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load member for work")
		h.workError(s, i)
		return
	}

	if rec.LastWorkAt != nil {
		if elapsed := time.Since(*rec.LastWorkAt); elapsed < WorkCooldown {
			embed := &discordgo.MessageEmbed{
				Title:       "Cooldown Active",
				Description: fmt.Sprintf("You need to wait %s before working again.", waitString(WorkCooldown-elapsed)),
				Color:       handler.ColorRed,
				Footer:      &discordgo.MessageEmbedFooter{Text: "You can work once per hour"},
			}
			handler.RespondEmbedEphemeral(s, i, embed)
			return
		}
	}

	earned := int64(workEarnMin + rand.Intn(workEarnMax-workEarnMin+1))

	now := time.Now()
	rec.Coins += earned
	rec.LastWorkAt = &now

	if err := member.Update(h.db, rec); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to persist work earnings")
		h.workError(s, i)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "💼 Work Completed",
		Description: fmt.Sprintf(workMessages[rand.Intn(len(workMessages))], earned),
		Color:       handler.ColorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Your Balance", Value: fmt.Sprintf("🪙 %d coins", rec.Coins)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "You can work again in 1 hour"},
	}

	log.Info().Str("user", userID).Int64("earned", earned).Msg("work completed")
	handler.RespondEmbed(s, i, embed)
}

func (h *Service) workError(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handler.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: "Something went wrong while adding coins. Please try again later.",
		Color:       handler.ColorRed,
	})
}

func (h *Service) balance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	if userID == "" {
		userID = handler.CallerID(i)
	}

	rec, err := member.GetOrCreate(h.db, i.GuildID, userID, "")
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load member balance")
		handler.RespondEphemeral(s, i, "Could not load the balance right now. Please try again later.")
		return
	}

	name := rec.Username
	if name == "" {
		name = "This member"
	}

	handler.RespondEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "🪙 Coin Balance",
		Description: fmt.Sprintf("%s has **%s** coins.", name, humanize.Comma(rec.Coins)),
		Color:       handler.ColorGold,
	})
}

func (h *Service) shop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := handler.CallerID(i)

	rec, err := member.GetOrCreate(h.db, i.GuildID, userID, handler.CallerName(i))
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load member for shop")
		handler.RespondEphemeral(s, i, "An error occurred. Please try again later.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🛍️ Exclusive Rewards Shop",
		Description: "Browse our collection of exclusive rewards that you can purchase with your coins.",
		Color:       shopColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Your Balance", Value: fmt.Sprintf("%s coins available", humanize.Comma(rec.Coins))},
		},
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: shopButtons(userID),
		},
	})
	if err != nil {
		log.Error().Err(err).Str("interaction", i.ID).Msg("failed to open shop")
	}
}

func (h *Service) buy(s *discordgo.Session, i *discordgo.InteractionCreate) {
	item := findItem(handler.Options(i).String("item"))
	if item == nil {
		handler.RespondEphemeral(s, i, "Item not found in shop.")
		return
	}

	ok, msg, balance := h.purchase(s, i.GuildID, handler.CallerID(i), handler.CallerName(i), item)
	if !ok {
		handler.RespondEmbedEphemeral(s, i, purchaseFailedEmbed(msg))
		return
	}

	handler.RespondEmbedEphemeral(s, i, purchaseSuccessEmbed(item, balance))
}

func (h *Service) addCoins(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	amount := opts.Int("amount")
	if amount <= 0 {
		handler.RespondEmbedEphemeral(s, i, coinErrorEmbed("Amount must be positive."))
		return
	}

	rec, err := member.AddCoins(h.db, i.GuildID, userID, "", amount)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to add coins")
		handler.RespondEmbedEphemeral(s, i, coinErrorEmbed("Error adding coins. Please try again later."))
		return
	}

	handler.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Coins Added",
		Description: fmt.Sprintf("Added %d coins to %s. New balance: %d coins.", amount, memberLabel(rec.Username, userID), rec.Coins),
		Color:       handler.ColorGreen,
	})
}

func (h *Service) removeCoins(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	amount := opts.Int("amount")
	if amount <= 0 {
		handler.RespondEmbedEphemeral(s, i, coinErrorEmbed("Amount must be positive."))
		return
	}

	rec, err := member.AddCoins(h.db, i.GuildID, userID, "", -amount)
	if err != nil {
		if errors.Is(err, member.ErrInsufficientFunds) {
			current, getErr := member.Get(h.db, i.GuildID, userID)
			balance := int64(0)
			label := memberLabel("", userID)
			if getErr == nil {
				balance = current.Coins
				label = memberLabel(current.Username, userID)
			}

			handler.RespondEmbedEphemeral(s, i, coinErrorEmbed(
				fmt.Sprintf("%s only has %d coins. Cannot remove %d.", label, balance, amount)))
			return
		}

		log.Error().Err(err).Str("user", userID).Msg("failed to remove coins")
		handler.RespondEmbedEphemeral(s, i, coinErrorEmbed("Error removing coins. Please try again later."))
		return
	}

	handler.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
		Title:       "✅ Coins Removed",
		Description: fmt.Sprintf("Removed %d coins from %s. New balance: %d coins.", amount, memberLabel(rec.Username, userID), rec.Coins),
		Color:       handler.ColorGreen,
	})
}

// component dispatches the shop button presses. Custom ids carry the
// catalog index and the id of the member who opened the shop.
func (h *Service) component(s *discordgo.Session, i *discordgo.InteractionCreate) {
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) < 3 {
		return
	}

	callerID := handler.CallerID(i)

	switch parts[1] {
	case "item":
		if len(parts) != 4 {
			return
		}
		if callerID != parts[3] {
			handler.RespondEphemeral(s, i, "This is not your shop menu!")
			return
		}
		h.confirmPrompt(s, i, parts[2], callerID)
	case "confirm":
		if len(parts) != 4 {
			return
		}
		if callerID != parts[3] {
			handler.RespondEphemeral(s, i, "This is not your confirmation dialog!")
			return
		}
		h.confirmPurchase(s, i, parts[2], callerID)
	case "cancel":
		if callerID != parts[2] {
			handler.RespondEphemeral(s, i, "This is not your confirmation dialog!")
			return
		}
		handler.RespondUpdate(s, i, &discordgo.MessageEmbed{
			Title:       "🛑 Purchase Cancelled",
			Description: "You have cancelled this purchase.",
			Color:       handler.ColorRed,
		})
	}
}

func (h *Service) confirmPrompt(s *discordgo.Session, i *discordgo.InteractionCreate, rawIdx, userID string) {
	idx, item := itemAt(rawIdx)
	if item == nil {
		handler.RespondEphemeral(s, i, "Item not found in shop.")
		return
	}

	rec, err := member.GetOrCreate(h.db, i.GuildID, userID, handler.CallerName(i))
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load member for purchase prompt")
		handler.RespondEphemeral(s, i, "An error occurred. Please try again later.")
		return
	}

	if rec.Coins < item.Price {
		handler.RespondEphemeral(s, i, fmt.Sprintf(
			"❌ You don't have enough coins to purchase this item! You have %s coins, but %s costs %s coins.",
			humanize.Comma(rec.Coins), item.Name, humanize.Comma(item.Price)))
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🛒 Confirm Purchase: %s", item.Name),
		Description: "Are you sure you want to purchase this item?",
		Color:       item.Color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Item", Value: fmt.Sprintf("%s %s", item.Emoji, item.Name), Inline: true},
			{Name: "Price", Value: fmt.Sprintf("%s coins", humanize.Comma(item.Price)), Inline: true},
			{Name: "Description", Value: item.Description},
			{Name: "Your Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(rec.Coins))},
			{Name: "Balance After Purchase", Value: fmt.Sprintf("%s coins", humanize.Comma(rec.Coins-item.Price))},
		},
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Confirm Purchase",
						Style:    discordgo.SuccessButton,
						CustomID: fmt.Sprintf("shop:confirm:%d:%s", idx, userID),
					},
					discordgo.Button{
						Label:    "Cancel",
						Style:    discordgo.DangerButton,
						CustomID: fmt.Sprintf("shop:cancel:%s", userID),
					},
				}},
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Str("interaction", i.ID).Msg("failed to send purchase confirmation")
	}
}

func (h *Service) confirmPurchase(s *discordgo.Session, i *discordgo.InteractionCreate, rawIdx, userID string) {
	_, item := itemAt(rawIdx)
	if item == nil {
		handler.RespondEphemeral(s, i, "Item not found in shop.")
		return
	}

	ok, msg, balance := h.purchase(s, i.GuildID, userID, handler.CallerName(i), item)
	if !ok {
		handler.RespondUpdate(s, i, purchaseFailedEmbed(msg))
		return
	}

	handler.RespondUpdate(s, i, purchaseSuccessEmbed(item, balance))
}

// purchase debits the item price and notifies the configured shop channel.
// It returns the outcome, the failure message and the remaining balance.
func (h *Service) purchase(s *discordgo.Session, guildID, userID, name string, item *shopItem) (bool, string, int64) {
	rec, err := member.GetOrCreate(h.db, guildID, userID, name)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load member for purchase")
		return false, "An error occurred. Please try again later.", 0
	}

	if rec.Coins < item.Price {
		return false, fmt.Sprintf("You don't have enough coins. You have %s coins, but %s costs %s coins.",
			humanize.Comma(rec.Coins), item.Name, humanize.Comma(item.Price)), rec.Coins
	}

	rec, err = member.AddCoins(h.db, guildID, userID, name, -item.Price)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to debit purchase")
		return false, "An error occurred. Please try again later.", 0
	}

	log.Info().Str("user", userID).Str("item", item.Name).Int64("price", item.Price).Msg("shop purchase completed")
	h.notifyPurchase(s, userID, name, item)

	return true, "", rec.Coins
}

func (h *Service) notifyPurchase(s *discordgo.Session, userID, name string, item *shopItem) {
	if h.cfg.Discord.ShopChannelID == "" {
		log.Warn().Msg("no notification channel set for shop purchases")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🛍️ New Shop Purchase!",
		Description: "A user has purchased an item from the shop.",
		Color:       item.Color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", userID, name)},
			{Name: "Item Purchased", Value: fmt.Sprintf("%s %s", item.Emoji, item.Name), Inline: true},
			{Name: "Price", Value: fmt.Sprintf("%s coins", humanize.Comma(item.Price)), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("ID: %s", userID)},
	}

	if _, err := s.ChannelMessageSendEmbed(h.cfg.Discord.ShopChannelID, embed); err != nil {
		log.Error().Err(err).Str("channel", h.cfg.Discord.ShopChannelID).Msg("failed to send purchase notification")
	}
}

// shopButtons builds one button per catalog item, bound to the member who
// opened the shop.
func shopButtons(userID string) []discordgo.MessageComponent {
	buttons := make([]discordgo.MessageComponent, 0, len(catalog))
	for idx, item := range catalog {
		buttons = append(buttons, discordgo.Button{
			Label:    fmt.Sprintf("%s - %s coins", item.Name, humanize.Comma(item.Price)),
			Style:    discordgo.SecondaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: item.Emoji},
			CustomID: fmt.Sprintf("shop:item:%d:%s", idx, userID),
		})
	}

	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func purchaseSuccessEmbed(item *shopItem, balance int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Purchase Successful!",
		Description: fmt.Sprintf("You have purchased %s %s!", item.Emoji, item.Name),
		Color:       item.Color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Price", Value: fmt.Sprintf("%s coins", humanize.Comma(item.Price)), Inline: true},
			{Name: "Remaining Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(balance)), Inline: true},
			{Name: "Next Steps", Value: "The staff has been notified of your purchase and will contact you shortly to deliver your reward."},
		},
	}
}

func purchaseFailedEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Purchase Failed",
		Description: msg,
		Color:       handler.ColorRed,
	}
}

func coinErrorEmbed(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Error",
		Description: msg,
		Color:       handler.ColorRed,
	}
}

func findItem(name string) *shopItem {
	for idx := range catalog {
		if catalog[idx].Name == name {
			return &catalog[idx]
		}
	}

	return nil
}

func itemAt(rawIdx string) (int, *shopItem) {
	idx, err := strconv.Atoi(rawIdx)
	if err != nil || idx < 0 || idx >= len(catalog) {
		return 0, nil
	}

	return idx, &catalog[idx]
}

func memberLabel(username, userID string) string {
	if username != "" {
		return username
	}

	return fmt.Sprintf("<@%s>", userID)
}

// waitString formats a cooldown remainder using its largest unit only.
func waitString(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%d hour%s", hours, plural(hours))
	case minutes > 0:
		return fmt.Sprintf("%d minute%s", minutes, plural(minutes))
	default:
		return fmt.Sprintf("%d second%s", seconds, plural(seconds))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}

	return "s"
}
