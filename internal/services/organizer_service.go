package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"lifeorganizer/internal/metrics"
	"lifeorganizer/internal/models"
)

// Classifier covers the model-backed understanding the organizer needs.
type Classifier interface {
	Categorize(ctx context.Context, text string) (*models.ClassificationResult, error)
	DetectIntent(ctx context.Context, text string) (*models.IntentResult, error)
	AnalyzeImage(ctx context.Context, imageData []byte, caption string) (*models.ImageAnalysis, error)
}

// Transcriber converts voice notes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ItemStore is the external item storage surface the organizer mutates.
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) (string, error)
	CreateBrainDump(ctx context.Context, title, content, msgType, fileURL string) (string, error)
	LogProgress(ctx context.Context, activity string, category models.Category, notes string) (string, error)
	ActiveItems(ctx context.Context) ([]models.Item, error)
	ItemsByCategory(ctx context.Context, category models.Category) ([]models.Item, error)
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch) error
	ArchiveItem(ctx context.Context, id string) error
}

// Matcher resolves a target description against candidate items.
type Matcher interface {
	Match(ctx context.Context, targetDesc string, candidates []models.Item) (*models.MatchResult, error)
}

// Sender is the outbound chat surface.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendChoices(ctx context.Context, chatID int64, text string, buttons []models.ChoiceButton) error
	SendTyping(ctx context.Context, chatID int64)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// maxFocusCandidates bounds how many items a focus session offers.
const maxFocusCandidates = 5

// OrganizerService is the conversational core: it admits updates, resolves
// pending confirmations and focus sessions, classifies fresh input, and
// routes it to the item store, habits, and gamification. Each update
// performs at most one store mutation.
type OrganizerService struct {
	gate       *AccessGate
	classifier Classifier
	transcribe Transcriber
	store      ItemStore
	matcher    Matcher
	sessions   *SessionService
	game       *GamificationService
	habits     *HabitService
	sender     Sender
	now        func() time.Time
}

// NewOrganizerService wires the organizer.
func NewOrganizerService(gate *AccessGate, classifier Classifier, transcribe Transcriber, store ItemStore, matcher Matcher, sessions *SessionService, game *GamificationService, habits *HabitService, sender Sender) *OrganizerService {
	return &OrganizerService{
		gate:       gate,
		classifier: classifier,
		transcribe: transcribe,
		store:      store,
		matcher:    matcher,
		sessions:   sessions,
		game:       game,
		habits:     habits,
		sender:     sender,
		now:        time.Now,
	}
}

// Sessions exposes the session registry for read-only consumers like the
// dashboard handler.
func (o *OrganizerService) Sessions() *SessionService {
	return o.sessions
}

// HandleUpdate processes one inbound update end to end. Button presses are
// folded into the same path as typed text.
func (o *OrganizerService) HandleUpdate(ctx context.Context, update *models.TelegramUpdate) {
	msg := update.Message
	text := ""
	var from *models.TelegramUser

	if update.CallbackQuery != nil {
		from = update.CallbackQuery.From
		text = update.CallbackQuery.Data
		if update.CallbackQuery.Message != nil {
			msg = update.CallbackQuery.Message
		}
	} else if msg != nil {
		from = msg.From
		text = msg.Text
	}

	if msg == nil || msg.Chat == nil || from == nil || from.IsBot {
		return
	}
	chatID := msg.Chat.ID
	userID := from.ID

	switch o.gate.Admit(userID) {
	case AdmitUnauthorized:
		// Silent drop; the gate already logged it.
		return
	case AdmitRateLimited:
		o.send(ctx, chatID, "⏳ Slow down a little — try again in a minute.")
		return
	}

	o.sessions.WithUser(userID, func(u *models.UserState) {
		u.ChatID = chatID
		u.FirstName = from.FirstName

		switch {
		case update.CallbackQuery == nil && msg.Voice != nil:
			metrics.MessagesHandled.WithLabelValues("voice").Inc()
			o.handleVoice(ctx, u, msg)
		case update.CallbackQuery == nil && len(msg.Photo) > 0:
			metrics.MessagesHandled.WithLabelValues("photo").Inc()
			o.handlePhoto(ctx, u, msg)
		case update.CallbackQuery == nil && msg.Document != nil:
			metrics.MessagesHandled.WithLabelValues("document").Inc()
			o.handleDocument(ctx, u, msg)
		default:
			metrics.MessagesHandled.WithLabelValues("text").Inc()
			o.handleText(ctx, u, text)
		}
	})
}

// handleText runs the full text path: commands, then the confirmation gate,
// then any live focus session, then intent routing.
func (o *OrganizerService) handleText(ctx context.Context, u *models.UserState, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if strings.HasPrefix(text, "/") {
		o.handleCommand(ctx, u, text)
		return
	}

	if u.Pending != nil {
		if o.resolveConfirmation(ctx, u, text) {
			return
		}
		// Non-affirmative reply cancelled the pending action; the message
		// falls through and is treated as fresh input.
	}

	if state, in := o.sessions.InFocus(u); in {
		if o.resolveFocus(ctx, u, state, text) {
			return
		}
	}

	o.sender.SendTyping(ctx, u.ChatID)
	o.routeIntent(ctx, u, text)
}

func (o *OrganizerService) handleCommand(ctx context.Context, u *models.UserState, text string) {
	cmd := strings.ToLower(strings.Fields(text)[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		o.send(ctx, u.ChatID, fmt.Sprintf(
			"👋 Hey %s! Send me anything on your mind — tasks, ideas, voice notes, photos — and I'll file it for you.\n\nTry /help to see what I can do.",
			u.FirstName))
	case "/help":
		o.send(ctx, u.ChatID, helpText)
	case "/active":
		o.replyActiveItems(ctx, u)
	case "/stats":
		o.replyStats(ctx, u)
	case "/weekly":
		o.replyWeekly(ctx, u)
	case "/focus":
		o.startFocus(ctx, u)
	case "/cancel":
		o.cancelCommand(ctx, u)
	case "/habits":
		o.replyHabits(ctx, u)
	default:
		o.send(ctx, u.ChatID, "🤔 I don't know that command. Try /help.")
	}
}

const helpText = `Here's what I can do:

📝 Just type anything and I'll categorize and save it
🎤 Send a voice note and I'll transcribe it first
📷 Send a photo and I'll file it as a resource
💬 Or tell me things like "mark the gym task done" or "delete the old shopping list"

Commands:
/active — show your active items
/stats — XP, level and streak
/weekly — week in review
/focus — pick one thing and focus on it
/habits — your habit list ("did my stretching" completes one)
/cancel — abandon a focus session or pending action`

// resolveConfirmation consumes the pending confirmation. Returns true when
// the turn is fully handled; false means the reply was an implicit cancel
// and should be re-routed as fresh input.
func (o *OrganizerService) resolveConfirmation(ctx context.Context, u *models.UserState, text string) bool {
	if u.Pending.Expired(o.now()) {
		u.Pending = nil
		return false
	}
	if !IsAffirmative(text) {
		u.Pending = nil
		o.send(ctx, u.ChatID, "👍 Okay, nothing changed.")
		return false
	}

	p, ok := o.sessions.TakeConfirmation(u)
	if !ok {
		o.send(ctx, u.ChatID, "⌛ That action expired — tell me again if you still want it.")
		return true
	}

	switch p.Action {
	case models.ConfirmDelete:
		if err := o.store.ArchiveItem(ctx, p.ItemID); err != nil {
			log.Printf("⚠️ [ORGANIZER] Archive failed for %s: %v", p.ItemID, err)
			o.send(ctx, u.ChatID, "❌ Couldn't delete that right now, it's still there.")
			return true
		}
		o.send(ctx, u.ChatID, fmt.Sprintf("🗑️ Deleted \"%s\".", p.ItemTitle))
	case models.ConfirmUpdate:
		prio := p.NewPriority
		if err := o.store.UpdateItem(ctx, p.ItemID, models.ItemPatch{Priority: &prio}); err != nil {
			log.Printf("⚠️ [ORGANIZER] Update failed for %s: %v", p.ItemID, err)
			o.send(ctx, u.ChatID, "❌ Couldn't update that right now.")
			return true
		}
		o.send(ctx, u.ChatID, fmt.Sprintf("%s \"%s\" is now %s priority.", prio.Emoji(), p.ItemTitle, prio))
	}
	return true
}

// resolveFocus advances a live focus session. Returns true when the turn was
// consumed by the session.
func (o *OrganizerService) resolveFocus(ctx context.Context, u *models.UserState, state models.FocusState, text string) bool {
	switch state {
	case models.FocusSelecting:
		item, ok := o.sessions.SelectFocusItem(u, text)
		if !ok {
			o.send(ctx, u.ChatID, "🤔 I couldn't tell which one you meant — reply with its number, or /cancel.")
			return true
		}
		o.send(ctx, u.ChatID, fmt.Sprintf(
			"🎯 Locked in: %s\n\nGo get it. Tell me \"done\" when you finish, or /cancel to stop.",
			item.FormatForDisplay()))
		return true

	case models.FocusActive:
		if !IsFocusCompletion(text) {
			return false
		}
		item, ok := o.sessions.CompleteFocus(u)
		if !ok {
			return false
		}
		if err := o.markItemDone(ctx, item.ID); err != nil {
			log.Printf("⚠️ [ORGANIZER] Marking focus item done failed: %v", err)
		}
		res := o.game.Award(u, XPFocusCompleted, o.now())
		o.send(ctx, u.ChatID, fmt.Sprintf("🏆 Focus session complete! \"%s\" is done.\n\n%s", item.Title, formatAward(res)))
		return true
	}
	return false
}

func (o *OrganizerService) routeIntent(ctx context.Context, u *models.UserState, text string) {
	intent, err := o.classifier.DetectIntent(ctx, text)
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Intent detection failed: %v", err)
		intent = &models.IntentResult{Intent: models.IntentNone}
	}

	switch intent.Intent {
	case models.IntentCreateItem, models.IntentNone:
		o.createFromText(ctx, u, text, XPItemCreated)
	case models.IntentQueryAll:
		o.replyActiveItems(ctx, u)
	case models.IntentQueryCategory:
		o.replyCategoryItems(ctx, u, intent.Category)
	case models.IntentUpdatePriority:
		o.stageMutation(ctx, u, models.ConfirmUpdate, intent.Target, intent.NewPriority)
	case models.IntentMarkComplete:
		o.completeItem(ctx, u, intent.Target)
	case models.IntentDelete:
		o.stageMutation(ctx, u, models.ConfirmDelete, intent.Target, "")
	case models.IntentHabitCreate:
		o.createHabit(ctx, u, intent, text)
	case models.IntentHabitComplete:
		o.completeHabit(ctx, u, intent.Target)
	default:
		o.createFromText(ctx, u, text, XPItemCreated)
	}
}

// createFromText classifies free-form text and files it as a new item. If
// the store rejects the item, the text is preserved as a brain dump instead
// of being lost.
func (o *OrganizerService) createFromText(ctx context.Context, u *models.UserState, text string, xp int) {
	result, err := o.classifier.Categorize(ctx, text)
	if err != nil {
		// Categorize degrades internally; an error here means something
		// unexpected, so preserve the raw text.
		o.brainDump(ctx, u, text, "text", "")
		return
	}
	if result.Degraded {
		metrics.ClassificationsDegraded.Inc()
	}

	item := &models.Item{
		Title:    result.Title,
		Category: result.Category,
		Type:     result.Type,
		Priority: result.Priority,
		Status:   models.StatusActive,
		Notes:    result.Summary,
	}
	if _, err := o.store.CreateItem(ctx, item); err != nil {
		log.Printf("⚠️ [ORGANIZER] Item creation failed, saving as brain dump: %v", err)
		o.brainDump(ctx, u, text, "text", "")
		return
	}
	metrics.ItemsCreated.Inc()

	res := o.game.Award(u, xp, o.now())
	reply := fmt.Sprintf("✅ Saved to %s:\n%s %s [%s]", item.Category, item.Priority.Emoji(), item.Title, item.Type)
	if result.SuggestedAction != "" {
		reply += "\n\n💡 " + result.SuggestedAction
	}
	reply += "\n\n" + formatAward(res)
	o.send(ctx, u.ChatID, reply)
}

func (o *OrganizerService) brainDump(ctx context.Context, u *models.UserState, content, msgType, fileURL string) {
	title := truncate(content, 60)
	if title == "" {
		title = "Captured " + msgType
	}
	if _, err := o.store.CreateBrainDump(ctx, title, content, msgType, fileURL); err != nil {
		log.Printf("⚠️ [ORGANIZER] Brain dump failed too: %v", err)
		o.send(ctx, u.ChatID, "❌ I couldn't save that anywhere. Please try again in a bit.")
		return
	}
	o.send(ctx, u.ChatID, "📥 I couldn't file that properly, so I tucked it into your brain dump for later.")
}

// stageMutation resolves the target and arms the confirmation gate. The
// store is never touched on this turn.
func (o *OrganizerService) stageMutation(ctx context.Context, u *models.UserState, action models.ConfirmAction, target string, newPriority models.Priority) {
	if strings.TrimSpace(target) == "" {
		o.send(ctx, u.ChatID, "🤔 Which item do you mean?")
		return
	}

	items, err := o.store.ActiveItems(ctx)
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Loading items for matching failed: %v", err)
		o.send(ctx, u.ChatID, "❌ I can't reach your items right now.")
		return
	}

	match, err := o.matcher.Match(ctx, target, items)
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Matching failed: %v", err)
		o.send(ctx, u.ChatID, "❌ I couldn't figure out which item you meant. Try again?")
		return
	}

	switch match.Outcome {
	case models.MatchNone:
		o.send(ctx, u.ChatID, fmt.Sprintf("🔍 I couldn't find anything matching \"%s\".", target))
	case models.MatchAmbiguous:
		verb := "delete"
		if action == models.ConfirmUpdate {
			verb = fmt.Sprintf("set to %s priority", strings.ToLower(string(newPriority)))
		}
		o.offerChoices(ctx, u, verb, match.Candidates)
	case models.MatchExact:
		o.sessions.BeginConfirmation(u, action, *match.Item, newPriority)
		o.send(ctx, u.ChatID, confirmPrompt(action, match.Item.Title, newPriority))
	}
}

// offerChoices presents ambiguous candidates as buttons whose payloads
// re-enter the router as explicit requests.
func (o *OrganizerService) offerChoices(ctx context.Context, u *models.UserState, verb string, candidates []models.Item) {
	buttons := make([]models.ChoiceButton, 0, len(candidates))
	for _, c := range candidates {
		buttons = append(buttons, models.ChoiceButton{
			Label: c.FormatForDisplay(),
			Data:  verb + " " + c.Title,
		})
	}
	if err := o.sender.SendChoices(ctx, u.ChatID, "🤔 Which one did you mean?", buttons); err != nil {
		log.Printf("⚠️ [ORGANIZER] Sending choices failed: %v", err)
	}
}

func confirmPrompt(action models.ConfirmAction, title string, newPriority models.Priority) string {
	if action == models.ConfirmDelete {
		return fmt.Sprintf("⚠️ Delete \"%s\"? Reply yes to confirm.", title)
	}
	return fmt.Sprintf("Set \"%s\" to %s priority? Reply yes to confirm.", title, newPriority)
}

// completeItem marks an exactly-matched item done immediately. Completion
// skips the yes/no confirmation (it is reversible in the store), but an
// ambiguous match still stalls for a choice before anything is written.
func (o *OrganizerService) completeItem(ctx context.Context, u *models.UserState, target string) {
	if strings.TrimSpace(target) == "" {
		o.send(ctx, u.ChatID, "🤔 Which item did you finish?")
		return
	}

	items, err := o.store.ActiveItems(ctx)
	if err != nil {
		o.send(ctx, u.ChatID, "❌ I can't reach your items right now.")
		return
	}
	match, err := o.matcher.Match(ctx, target, items)
	if err != nil || match.Outcome == models.MatchNone {
		o.send(ctx, u.ChatID, fmt.Sprintf("🔍 I couldn't find anything matching \"%s\".", target))
		return
	}

	if match.Outcome == models.MatchAmbiguous {
		o.offerChoices(ctx, u, "complete", match.Candidates)
		return
	}

	item := match.Item
	if err := o.markItemDone(ctx, item.ID); err != nil {
		log.Printf("⚠️ [ORGANIZER] Completing %s failed: %v", item.ID, err)
		o.send(ctx, u.ChatID, "❌ Couldn't mark that done right now.")
		return
	}
	if _, err := o.store.LogProgress(ctx, "Completed: "+item.Title, item.Category, ""); err != nil {
		log.Printf("⚠️ [ORGANIZER] Progress log failed: %v", err)
	}

	res := o.game.Award(u, XPItemCompleted, o.now())
	o.send(ctx, u.ChatID, fmt.Sprintf("🎉 \"%s\" is done!\n\n%s", item.Title, formatAward(res)))
}

func (o *OrganizerService) markItemDone(ctx context.Context, id string) error {
	done := models.StatusDone
	return o.store.UpdateItem(ctx, id, models.ItemPatch{Status: &done})
}

func (o *OrganizerService) createHabit(ctx context.Context, u *models.UserState, intent *models.IntentResult, text string) {
	spec := intent.Habit
	if spec == nil || strings.TrimSpace(spec.Name) == "" {
		spec = &models.HabitSpec{Name: truncate(text, 60), Frequency: models.FrequencyDaily}
	}
	if _, err := o.habits.Create(ctx, spec); err != nil {
		log.Printf("⚠️ [ORGANIZER] Habit creation failed: %v", err)
		o.send(ctx, u.ChatID, "❌ Couldn't create that habit right now.")
		return
	}
	o.send(ctx, u.ChatID, fmt.Sprintf("🔁 New habit: %s (%s). I'll keep you honest.", spec.Name, spec.Frequency))
}

func (o *OrganizerService) completeHabit(ctx context.Context, u *models.UserState, target string) {
	habit, xp, err := o.habits.Complete(ctx, target, o.now())
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Habit completion failed: %v", err)
		o.send(ctx, u.ChatID, "❌ Couldn't record that right now.")
		return
	}
	if habit == nil {
		o.send(ctx, u.ChatID, fmt.Sprintf("🔍 No habit matches \"%s\". /habits shows your list.", target))
		return
	}
	if xp == 0 {
		o.send(ctx, u.ChatID, fmt.Sprintf("✅ \"%s\" was already done today — nice consistency!", habit.Name))
		return
	}

	res := o.game.Award(u, xp, o.now())
	o.send(ctx, u.ChatID, fmt.Sprintf("💪 %s done!\n\n%s", habit.Name, formatAward(res)))
}

func (o *OrganizerService) handleVoice(ctx context.Context, u *models.UserState, msg *models.TelegramMessage) {
	o.sender.SendTyping(ctx, u.ChatID)

	audio, err := o.sender.DownloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Voice download failed: %v", err)
		o.send(ctx, u.ChatID, "❌ Couldn't fetch that voice note.")
		return
	}

	text, err := o.transcribe.Transcribe(ctx, audio, "voice.ogg")
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Transcription failed: %v", err)
		o.brainDump(ctx, u, "Voice note ("+msg.Voice.FileID+")", "voice", "")
		return
	}

	o.send(ctx, u.ChatID, "🎤 I heard: \""+truncate(text, 200)+"\"")

	// A transcript can be a confirmation reply or a focus completion just
	// as well as new content, so live session state routes it like text.
	_, inFocus := o.sessions.InFocus(u)
	if u.Pending != nil || inFocus {
		o.handleText(ctx, u, text)
		return
	}
	o.createFromText(ctx, u, text, XPItemCreated+XPVoiceNote)
}

func (o *OrganizerService) handlePhoto(ctx context.Context, u *models.UserState, msg *models.TelegramMessage) {
	o.sender.SendTyping(ctx, u.ChatID)

	// Telegram sends multiple sizes; the last is the largest.
	photo := msg.Photo[len(msg.Photo)-1]
	data, err := o.sender.DownloadFile(ctx, photo.FileID)
	if err != nil {
		log.Printf("⚠️ [ORGANIZER] Photo download failed: %v", err)
		o.send(ctx, u.ChatID, "❌ Couldn't fetch that photo.")
		return
	}

	analysis, err := o.classifier.AnalyzeImage(ctx, data, msg.Caption)
	if err != nil {
		o.brainDump(ctx, u, msg.Caption, "photo", "")
		return
	}
	if analysis.Degraded {
		metrics.ClassificationsDegraded.Inc()
	}

	item := &models.Item{
		Title:    analysis.SuggestedTitle,
		Category: analysis.Category,
		Type:     models.TypeResource,
		Priority: analysis.Priority,
		Status:   models.StatusActive,
		Notes:    analysis.Description,
	}
	if _, err := o.store.CreateItem(ctx, item); err != nil {
		o.brainDump(ctx, u, analysis.Description, "photo", "")
		return
	}
	metrics.ItemsCreated.Inc()

	res := o.game.Award(u, XPItemCreated, o.now())
	o.send(ctx, u.ChatID, fmt.Sprintf("📷 Saved to %s:\n%s %s\n\n%s", item.Category, item.Priority.Emoji(), item.Title, formatAward(res)))
}

func (o *OrganizerService) handleDocument(ctx context.Context, u *models.UserState, msg *models.TelegramMessage) {
	doc := msg.Document
	title := doc.FileName
	if title == "" {
		title = "Document"
	}
	content := title
	if msg.Caption != "" {
		content = msg.Caption + "\n\n" + title
	}

	if _, err := o.store.CreateBrainDump(ctx, truncate(title, 60), content, "document", ""); err != nil {
		log.Printf("⚠️ [ORGANIZER] Document capture failed: %v", err)
		o.send(ctx, u.ChatID, "❌ Couldn't save that document reference.")
		return
	}

	reply := "📄 Filed \"" + title + "\" in your brain dump."
	if result, err := o.classifier.Categorize(ctx, content); err == nil && !result.Degraded {
		reply += "\n💡 Looks like " + string(result.Category) + " — tell me if you want it filed there."
	}
	o.send(ctx, u.ChatID, reply)
}

func (o *OrganizerService) replyActiveItems(ctx context.Context, u *models.UserState) {
	items, err := o.store.ActiveItems(ctx)
	if err != nil {
		o.send(ctx, u.ChatID, "❌ I can't reach your items right now.")
		return
	}
	if len(items) == 0 {
		o.send(ctx, u.ChatID, "✨ Nothing active — clean slate!")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Active items* (%d)\n", len(items))
	for _, cat := range models.Categories {
		var lines []string
		for i := range items {
			if items[i].Category == cat {
				lines = append(lines, "  "+items[i].Priority.Emoji()+" "+items[i].Title)
			}
		}
		if len(lines) > 0 {
			fmt.Fprintf(&b, "\n*%s*\n%s\n", cat, strings.Join(lines, "\n"))
		}
	}
	o.send(ctx, u.ChatID, b.String())
}

func (o *OrganizerService) replyCategoryItems(ctx context.Context, u *models.UserState, category models.Category) {
	if category == "" {
		o.replyActiveItems(ctx, u)
		return
	}
	items, err := o.store.ItemsByCategory(ctx, category)
	if err != nil {
		o.send(ctx, u.ChatID, "❌ I can't reach your items right now.")
		return
	}
	if len(items) == 0 {
		o.send(ctx, u.ChatID, fmt.Sprintf("✨ Nothing active in %s.", category))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *%s* (%d)\n\n", category, len(items))
	for i := range items {
		b.WriteString(items[i].Priority.Emoji() + " " + items[i].Title + "\n")
	}
	o.send(ctx, u.ChatID, b.String())
}

func (o *OrganizerService) replyStats(ctx context.Context, u *models.UserState) {
	level, title := LevelForXP(u.XP)
	next := NextLevelThreshold(u.XP)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Your stats*\n\n%s Level %d\n⚡ %d XP", title, level, u.XP)
	if next > 0 {
		fmt.Fprintf(&b, " (%d to next level)", next-u.XP)
	}
	fmt.Fprintf(&b, "\n🔥 %d-day streak", u.Streak)
	o.send(ctx, u.ChatID, b.String())
}

func (o *OrganizerService) replyWeekly(ctx context.Context, u *models.UserState) {
	items, err := o.store.ActiveItems(ctx)
	if err != nil {
		o.send(ctx, u.ChatID, "❌ I can't reach your items right now.")
		return
	}

	weekAgo := o.now().AddDate(0, 0, -7)
	created := 0
	high := 0
	perCategory := map[models.Category]int{}
	for i := range items {
		if items[i].CreatedAt.After(weekAgo) {
			created++
			perCategory[items[i].Category]++
		}
		if items[i].Priority == models.PriorityHigh {
			high++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗓️ *Week in review*\n\n📥 %d new items captured\n🔴 %d high-priority items still open\n🔥 %d-day streak\n", created, high, u.Streak)
	if len(perCategory) > 0 {
		b.WriteString("\nWhere the week went:\n")
		cats := make([]models.Category, 0, len(perCategory))
		for c := range perCategory {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return perCategory[cats[i]] > perCategory[cats[j]] })
		for _, c := range cats {
			fmt.Fprintf(&b, "  %s: %d\n", c, perCategory[c])
		}
	}
	o.send(ctx, u.ChatID, b.String())
}

func (o *OrganizerService) replyHabits(ctx context.Context, u *models.UserState) {
	habits, err := o.habits.List(ctx)
	if err != nil {
		o.send(ctx, u.ChatID, "❌ I can't reach your habits right now.")
		return
	}
	if len(habits) == 0 {
		o.send(ctx, u.ChatID, "🔁 No habits yet. Tell me something like \"remind me to stretch every morning\".")
		return
	}

	today := o.now()
	var b strings.Builder
	b.WriteString("🔁 *Your habits*\n\n")
	for i := range habits {
		b.WriteString(habits[i].FormatForDisplay(today) + "\n")
	}
	o.send(ctx, u.ChatID, b.String())
}

// startFocus offers the highest-leverage open items for a single-task
// session.
func (o *OrganizerService) startFocus(ctx context.Context, u *models.UserState) {
	if _, in := o.sessions.InFocus(u); in {
		o.send(ctx, u.ChatID, "🎯 You're already in a focus session. /cancel to abandon it.")
		return
	}

	items, err := o.store.ActiveItems(ctx)
	if err != nil {
		o.send(ctx, u.ChatID, "❌ I can't reach your items right now.")
		return
	}

	var candidates []models.Item
	for i := range items {
		if items[i].Priority == models.PriorityHigh || items[i].Priority == models.PriorityMedium {
			candidates = append(candidates, items[i])
		}
		if len(candidates) == maxFocusCandidates {
			break
		}
	}
	if len(candidates) == 0 {
		o.send(ctx, u.ChatID, "✨ Nothing urgent to focus on. Enjoy the calm!")
		return
	}

	if _, ok := o.sessions.StartFocusSelection(u, candidates); !ok {
		o.send(ctx, u.ChatID, "🎯 You're already in a focus session. /cancel to abandon it.")
		return
	}

	buttons := make([]models.ChoiceButton, 0, len(candidates))
	var b strings.Builder
	b.WriteString("🎯 Pick one thing to focus on:\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.FormatForDisplay())
		buttons = append(buttons, models.ChoiceButton{Label: fmt.Sprintf("%d", i+1), Data: fmt.Sprintf("%d", i+1)})
	}
	if err := o.sender.SendChoices(ctx, u.ChatID, b.String(), buttons); err != nil {
		log.Printf("⚠️ [ORGANIZER] Sending focus choices failed: %v", err)
	}
}

func (o *OrganizerService) cancelCommand(ctx context.Context, u *models.UserState) {
	cancelled := false
	if u.Pending != nil {
		u.Pending = nil
		cancelled = true
	}
	if o.sessions.CancelFocus(u) {
		cancelled = true
	}
	if cancelled {
		o.send(ctx, u.ChatID, "👍 Cancelled.")
	} else {
		o.send(ctx, u.ChatID, "Nothing to cancel.")
	}
}

func (o *OrganizerService) send(ctx context.Context, chatID int64, text string) {
	if err := o.sender.SendMessage(ctx, chatID, text); err != nil {
		log.Printf("⚠️ [ORGANIZER] Send to chat %d failed: %v", chatID, err)
	}
}

func formatAward(res AwardResult) string {
	s := fmt.Sprintf("+%d XP ⚡ | %s (L%d) | 🔥 %d-day streak", res.XPAdded, res.LevelTitle, res.Level, res.Streak)
	if res.StreakBonus {
		s += fmt.Sprintf("\n🎁 Streak bonus! +%d XP included.", StreakBonusXP)
	}
	return s
}
