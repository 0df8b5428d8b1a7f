package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"meal-shopper/internal/app"
	"meal-shopper/internal/clipper"
	"meal-shopper/internal/mealdb"
	"meal-shopper/internal/recipe"
	"meal-shopper/internal/shopping"
)

const maxSearchResults = 10

const helpText = `🛒 *Shopping list bot*

/search _name_ - find recipes
/add _id_ [_id_...] - add recipe ingredients to your list
/random - suggest a random recipe
/list - show your shopping list
/remove _item-id_ - remove one item
/removerecipe _id_ - remove every item of a recipe
/clear - empty your list

Send a recipe page link to import its ingredients.`

// Commands turns chat messages into operations on the chat's shopping list.
// Every chat owns its own list.
type Commands struct {
	app *app.App
}

// NewCommands creates a command handler over a.
func NewCommands(a *app.App) *Commands {
	return &Commands{app: a}
}

// Handle runs the command in text for chatID and returns the Markdown reply.
func (c *Commands) Handle(ctx context.Context, chatID int64, text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return c.importPage(ctx, chatID, text)
	}

	cmd, arg := splitCommand(text)
	switch cmd {
	case "/start", "/help":
		return helpText
	case "/search":
		return c.search(ctx, arg)
	case "/add":
		return c.add(ctx, chatID, strings.Fields(arg))
	case "/random":
		return c.random(ctx)
	case "/list":
		return c.list(ctx, chatID)
	case "/remove":
		return c.remove(ctx, chatID, arg)
	case "/removerecipe":
		return c.removeRecipe(ctx, chatID, arg)
	case "/clear":
		return c.clear(ctx, chatID)
	case "":
		return c.search(ctx, text)
	default:
		return "🤔 Unknown command. Send /help for the list of commands."
	}
}

// splitCommand separates a leading /command (dropping any @botname suffix)
// from its argument. Plain text yields an empty command.
func splitCommand(text string) (cmd, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, arg, _ = strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func listName(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (c *Commands) search(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return "Usage: /search _name_"
	}
	meals, err := c.app.Search(ctx, query)
	if err != nil {
		return errorReply("searching recipes", err)
	}
	return formatSearchResults(query, meals)
}

func (c *Commands) random(ctx context.Context) string {
	meal, err := c.app.RandomRecipe(ctx)
	if err != nil {
		return errorReply("fetching a recipe", err)
	}
	return formatRecipe(*meal)
}

func (c *Commands) add(ctx context.Context, chatID int64, ids []string) string {
	if len(ids) == 0 {
		return "Usage: /add _id_ [_id_...]"
	}
	results, err := c.app.AddRecipes(ctx, listName(chatID), ids)
	if err != nil {
		if errors.Is(err, mealdb.ErrNotFound) {
			return "❌ Recipe not found. Use /search to find recipe ids."
		}
		return errorReply("adding recipes", err)
	}

	var sb strings.Builder
	for _, res := range results {
		fmt.Fprintf(&sb, "✅ *%s*: %d new %s\n", escape(res.RecipeName), res.Added, plural(res.Added, "item", "items"))
	}
	if len(results) > 0 {
		fmt.Fprintf(&sb, "\n🛒 %d %s on your list.", results[len(results)-1].Count, plural(results[len(results)-1].Count, "item", "items"))
	}
	return sb.String()
}

func (c *Commands) importPage(ctx context.Context, chatID int64, pageURL string) string {
	res, err := c.app.ImportPage(ctx, listName(chatID), pageURL)
	if err != nil {
		if errors.Is(err, clipper.ErrNoIngredients) {
			return "❌ No ingredient list found on that page."
		}
		return errorReply("importing the page", err)
	}
	return fmt.Sprintf("✂️ *%s*: %d new %s\n\n🛒 %d %s on your list.",
		escape(res.RecipeName), res.Added, plural(res.Added, "item", "items"),
		res.Count, plural(res.Count, "item", "items"))
}

func (c *Commands) list(ctx context.Context, chatID int64) string {
	st, err := c.app.List(ctx, listName(chatID))
	if err != nil {
		return errorReply("opening your list", err)
	}
	return formatShoppingList(st.SortedView())
}

func (c *Commands) remove(ctx context.Context, chatID int64, id string) string {
	if id == "" {
		return "Usage: /remove _item-id_ (ids are shown by /list)"
	}
	st, err := c.app.List(ctx, listName(chatID))
	if err != nil {
		return errorReply("opening your list", err)
	}
	removed, err := st.Remove(ctx, id)
	if err != nil {
		return errorReply("saving your list", err)
	}
	if !removed {
		return "Nothing to remove: that item is not on your list."
	}
	return fmt.Sprintf("🗑 Removed. %d %s left.", st.ItemCount(), plural(st.ItemCount(), "item", "items"))
}

func (c *Commands) removeRecipe(ctx context.Context, chatID int64, recipeID string) string {
	if recipeID == "" {
		return "Usage: /removerecipe _id_"
	}
	st, err := c.app.List(ctx, listName(chatID))
	if err != nil {
		return errorReply("opening your list", err)
	}
	removed, err := st.RemoveByRecipe(ctx, recipeID)
	if err != nil {
		return errorReply("saving your list", err)
	}
	return fmt.Sprintf("🗑 Removed %d %s. %d left.", removed, plural(removed, "item", "items"), st.ItemCount())
}

func (c *Commands) clear(ctx context.Context, chatID int64) string {
	st, err := c.app.List(ctx, listName(chatID))
	if err != nil {
		return errorReply("opening your list", err)
	}
	if err := st.Clear(ctx); err != nil {
		return errorReply("saving your list", err)
	}
	return "🧹 Your shopping list is empty."
}

func formatSearchResults(query string, meals []recipe.Meal) string {
	if len(meals) == 0 {
		return fmt.Sprintf("No recipes found for _%s_.", escape(query))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔎 *Recipes for* _%s_\n\n", escape(query))
	for i, m := range meals {
		if i == maxSearchResults {
			fmt.Fprintf(&sb, "\n_...and %d more_\n", len(meals)-maxSearchResults)
			break
		}
		fmt.Fprintf(&sb, "• %s `%s`\n", escape(m.Name), m.ID)
	}
	sb.WriteString("\nAdd one with /add _id_")
	return sb.String()
}

func formatRecipe(m recipe.Meal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍽 *%s* `%s`\n", escape(m.Name), m.ID)
	if m.Category != "" || m.Area != "" {
		fmt.Fprintf(&sb, "_%s_\n", escape(strings.Trim(m.Category+" · "+m.Area, " ·")))
	}
	sb.WriteString("\n")
	items, _ := shopping.ExtractIngredients(m)
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s", escape(it.Ingredient))
		if it.Measure != "" {
			fmt.Fprintf(&sb, " (%s)", escape(it.Measure))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nAdd it with /add %s", m.ID)
	return sb.String()
}

func formatShoppingList(items []shopping.Item) string {
	if len(items) == 0 {
		return "🛒 Your shopping list is empty."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 *Shopping List* (%d)\n\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&sb, "• *%s*", escape(it.Ingredient))
		if it.Measure != "" {
			fmt.Fprintf(&sb, " %s", escape(it.Measure))
		}
		fmt.Fprintf(&sb, " `%s`\n", it.ID)
	}
	return sb.String()
}

func errorReply(action string, err error) string {
	slog.Error("bot command failed", "action", action, "error", err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	return fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", action, safeErr)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
