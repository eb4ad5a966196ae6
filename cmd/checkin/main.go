package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"checkin-companion/internal/api"
	"checkin-companion/internal/app"
	"checkin-companion/internal/config"
	"checkin-companion/internal/gate"
	"checkin-companion/internal/handler"
	"checkin-companion/internal/models"
	"checkin-companion/internal/payload"
	"checkin-companion/internal/storage"
	"checkin-companion/internal/whatsapp"
)

func main() {
	fmt.Println("📋 Check-in Companion")
	fmt.Println("=====================")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, err := storage.OpenJournal(cfg.JournalPath)
	if err != nil {
		fmt.Printf("Error opening scan journal: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	var notifier *handler.CheckinHandler
	if cfg.NotifyPhone != "" {
		wa, err := whatsapp.NewService(ctx, &whatsapp.Config{
			DataDir:     cfg.DataDir,
			CountryCode: cfg.NotifyCountryCode,
		}, log)
		if err != nil {
			fmt.Printf("Error initializing WhatsApp service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Connecting to WhatsApp...")
		if err := wa.Connect(ctx); err != nil {
			fmt.Printf("Error connecting to WhatsApp: %v\n", err)
			os.Exit(1)
		}
		defer wa.Disconnect()
		notifier = handler.NewCheckinHandler(wa, &handler.Config{StaffPhone: cfg.NotifyPhone}, log)
		fmt.Println("✅ Staff notifications enabled")
	}

	client := api.NewClient(cfg.APIURL).WithTimeout(cfg.RequestTimeout)
	if cfg.APIToken != "" {
		client = client.WithToken(cfg.APIToken)
	}

	sh := &shell{log: log, quit: stop}
	sh.app = app.New(client, log, app.Options{
		ImageURL:       cfg.ImageURL,
		Locale:         cfg.Language(),
		Dwell:          cfg.Dwell,
		Timeout:        cfg.RequestTimeout,
		Navigator:      app.NavigatorFunc(sh.navigate),
		Journal:        journal,
		Notifier:       notifier,
		OnAccessDenied: sh.accessDenied,
		OnResult:       sh.printResult,
	})

	if err := sh.app.Refresh(ctx); err != nil {
		if errors.Is(err, app.ErrAccessDenied) {
			return
		}
		fmt.Printf("❌ Error loading home: %v\n", err)
	} else {
		sh.printHome()
	}

	go sh.run(ctx)

	<-ctx.Done()

	fmt.Println("\n\nShutting down...")
	sh.closeScreen()
	fmt.Println("Goodbye! 👋")
}

// shell is the interactive console. Scanned codes are typed or piped in as
// the decoded QR text.
type shell struct {
	app  *app.App
	log  zerolog.Logger
	quit func()

	mu      sync.Mutex
	screen  *app.Screen
	profile *app.ProfileScreen
}

func (sh *shell) run(ctx context.Context) {
	defer sh.quit()
	scanner := bufio.NewScanner(os.Stdin)
	sh.printHelp()

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		command, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		switch command {
		case "help":
			sh.printHelp()
		case "home", "refresh":
			sh.refresh(ctx)
		case "session":
			sh.open(ctx, models.TargetSession, arg)
		case "event":
			sh.open(ctx, models.TargetEvent, arg)
		case "roster":
			sh.printRoster()
		case "search":
			sh.search(arg)
		case "reload":
			sh.reload(ctx)
		case "scan":
			sh.openScanner()
		case "code":
			sh.feed(arg)
		case "close":
			sh.closeScanner()
		case "profile":
			sh.openProfile(ctx, arg)
		case "checkin":
			sh.manualCheckIn(ctx)
		case "photo":
			sh.uploadPhoto(ctx, arg)
		case "back":
			sh.back()
		case "history":
			sh.printHistory(ctx)
		case "badge":
			sh.printBadge(arg)
		case "quit", "exit":
			fmt.Println("Exiting...")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for the list.")
		}
	}
}

func (sh *shell) printHelp() {
	fmt.Println("\nCommands:")
	fmt.Println("  home | refresh        Reload sessions and events")
	fmt.Println("  session <id>          Open an info session roster")
	fmt.Println("  event <id>            Open an event roster")
	fmt.Println("  roster                Show the open roster")
	fmt.Println("  search <name>         Filter the roster by name")
	fmt.Println("  reload                Reload the open roster")
	fmt.Println("  scan                  Open the scanner")
	fmt.Println("  code <payload>        Submit a decoded QR payload")
	fmt.Println("  close                 Close the scanner")
	fmt.Println("  profile <id>          Open a participant profile")
	fmt.Println("  checkin               Check in the open profile manually")
	fmt.Println("  photo <file>          Upload a photo for the open profile")
	fmt.Println("  back                  Leave the current screen")
	fmt.Println("  history               Show recent scans")
	fmt.Println("  badge <email> <code>  Print an invitation QR code")
	fmt.Println("  quit                  Exit")
}

func (sh *shell) refresh(ctx context.Context) {
	if err := sh.app.Refresh(ctx); err != nil {
		sh.printError("Error loading home", err)
		return
	}
	sh.printHome()
}

func (sh *shell) printHome() {
	sessions := sh.app.InfoSessions()
	fmt.Printf("\n📚 Info sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		status := ""
		if s.IsFinish {
			status = " (finished)"
		}
		fmt.Printf("  [%d] %s%s\n", s.ID, s.Title(), status)
	}

	events := sh.app.Events()
	fmt.Printf("\n🎟  Events (%d):\n", len(events))
	for _, e := range events {
		fmt.Printf("  [%d] %s", e.ID, e.Title(sh.app.Locale()))
		if e.Date != "" {
			fmt.Printf(" on %s", e.Date)
		}
		fmt.Println()
	}
}

func (sh *shell) open(ctx context.Context, kind models.TargetKind, id string) {
	if id == "" {
		fmt.Printf("Usage: %s <id>\n", kind)
		return
	}
	sh.closeScreen()

	var screen *app.Screen
	var err error
	if kind == models.TargetEvent {
		screen, err = sh.app.OpenEvent(ctx, id)
	} else {
		screen, err = sh.app.OpenSession(ctx, id)
	}
	if err != nil {
		sh.printError("Error loading roster", err)
		return
	}

	sh.mu.Lock()
	sh.screen = screen
	sh.profile = nil
	sh.mu.Unlock()
	sh.printRoster()
}

func (sh *shell) currentScreen() *app.Screen {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.screen == nil {
		fmt.Println("No roster open. Use 'session <id>' or 'event <id>'.")
	}
	return sh.screen
}

func (sh *shell) printRoster() {
	screen := sh.currentScreen()
	if screen == nil {
		return
	}
	attended, total := screen.Stats()
	participants := screen.Participants()

	fmt.Printf("\n📋 %s: %d/%d attended\n", screen.Title(), attended, total)
	if q := strings.TrimSpace(screen.Store().Query()); q != "" {
		fmt.Printf("Search: %q (%d shown)\n", q, len(participants))
	}
	fmt.Println(strings.Repeat("-", 60))
	for _, p := range participants {
		mark := "  "
		if p.IsVisited {
			mark = "✅"
		}
		fmt.Printf("%s [%d] %-28s %s\n", mark, p.ID, p.FullName, p.Email)
	}
	fmt.Println(strings.Repeat("-", 60))
}

func (sh *shell) search(query string) {
	screen := sh.currentScreen()
	if screen == nil {
		return
	}
	screen.Search(query)
	sh.printRoster()
}

func (sh *shell) reload(ctx context.Context) {
	screen := sh.currentScreen()
	if screen == nil {
		return
	}
	if _, err := screen.Refresh(ctx); err != nil {
		sh.printError("Error reloading roster", err)
		return
	}
	sh.printRoster()
}

func (sh *shell) openScanner() {
	screen := sh.currentScreen()
	if screen == nil {
		return
	}
	if !screen.OpenScanner() {
		fmt.Println("Scanner busy, wait for the current result.")
		return
	}
	fmt.Println("📷 Scanner open. Submit codes with 'code <payload>', leave with 'close'.")
}

func (sh *shell) feed(raw string) {
	screen := sh.currentScreen()
	if screen == nil {
		return
	}
	if !screen.Scan(raw) {
		fmt.Printf("Code ignored (scanner %s).\n", screen.State())
	}
}

func (sh *shell) closeScanner() {
	screen := sh.currentScreen()
	if screen == nil {
		return
	}
	screen.CloseScanner()
	fmt.Println("Scanner closed.")
}

func (sh *shell) closeScreen() {
	sh.mu.Lock()
	screen := sh.screen
	sh.screen = nil
	sh.profile = nil
	sh.mu.Unlock()
	if screen != nil {
		screen.Close()
	}
}

func (sh *shell) openProfile(ctx context.Context, arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("Usage: profile <id>")
		return
	}

	sh.mu.Lock()
	screen := sh.screen
	sh.mu.Unlock()

	var profile *app.ProfileScreen
	if screen != nil {
		screen.CloseScanner()
		profile, err = screen.OpenProfile(ctx, id)
	} else {
		profile, err = sh.app.OpenProfile(ctx, id, models.ScanContext{})
	}
	if err != nil {
		sh.printError("Error loading profile", err)
		return
	}
	sh.showProfile(profile)
}

func (sh *shell) showProfile(profile *app.ProfileScreen) {
	sh.mu.Lock()
	sh.profile = profile
	sh.mu.Unlock()

	p := profile.Profile()
	fmt.Printf("\n👤 %s (%s)\n", p.FullName, p.Initials())
	fmt.Printf("Email: %s\n", p.Email)
	if p.Phone != "" {
		fmt.Printf("Phone: %s\n", p.Phone)
	}
	if p.City != "" {
		fmt.Printf("City: %s\n", p.City)
	}
	if p.CurrentStep != "" {
		fmt.Printf("Step: %s\n", p.Step())
	}
	if url := profile.ImageURL(); url != "" {
		fmt.Printf("Photo: %s\n", url)
	}
	if p.IsVisited {
		fmt.Println("Status: ✅ checked in")
	} else {
		fmt.Println("Status: not checked in ('checkin' to mark present)")
	}
}

func (sh *shell) currentProfile() *app.ProfileScreen {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.profile == nil {
		fmt.Println("No profile open. Use 'profile <id>'.")
	}
	return sh.profile
}

func (sh *shell) manualCheckIn(ctx context.Context) {
	profile := sh.currentProfile()
	if profile == nil {
		return
	}
	status, err := profile.ManualCheckIn(ctx)
	if err != nil {
		sh.printError("Error checking in", err)
		return
	}
	if status != 200 {
		fmt.Printf("❌ Check-in not confirmed (status %d)\n", status)
		return
	}
	sh.showProfile(profile)
}

func (sh *shell) uploadPhoto(ctx context.Context, path string) {
	profile := sh.currentProfile()
	if profile == nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("❌ Error opening photo: %v\n", err)
		return
	}
	defer f.Close()

	if _, err := profile.UploadPhoto(ctx, filepath.Base(path), f); err != nil {
		sh.printError("Error uploading photo", err)
		return
	}
	sh.showProfile(profile)
}

func (sh *shell) back() {
	sh.mu.Lock()
	profile := sh.profile
	sh.profile = nil
	sh.mu.Unlock()

	if profile != nil {
		if path := profile.BackPath(); path != models.HomePath {
			fmt.Printf("Back to %s\n", path)
			sh.printRoster()
			return
		}
	}
	sh.closeScreen()
	sh.printHome()
}

func (sh *shell) printHistory(ctx context.Context) {
	entries, err := sh.app.History(ctx, 20)
	if err != nil {
		fmt.Printf("❌ Error reading history: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("\nNo scans recorded.")
		return
	}
	fmt.Printf("\n🕘 Recent scans (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %s/%s  %-22s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.TargetKind, e.TargetID, e.Outcome, e.Email)
	}
}

func (sh *shell) printBadge(arg string) {
	email, code, ok := strings.Cut(arg, " ")
	if !ok {
		fmt.Println("Usage: badge <email> <code>")
		return
	}
	data, err := payload.Encode(models.InvitationCredential{Email: email, Code: strings.TrimSpace(code)})
	if err != nil {
		fmt.Printf("❌ Error encoding badge: %v\n", err)
		return
	}
	q, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		fmt.Printf("❌ Error rendering badge: %v\n", err)
		return
	}
	fmt.Println("\n" + q.ToSmallString(false))
	fmt.Println(data)
}

func (sh *shell) printResult(res gate.Result) {
	icon := "❌"
	switch res.Outcome {
	case models.OutcomeMatched:
		icon = "✅"
	case models.OutcomeAlreadyParticipated:
		icon = "🔁"
	case models.OutcomeWrongGroup:
		icon = "↪️"
	}
	fmt.Printf("\n%s %s  [%s]\n", icon, res.Display.Headline, res.Display.Color)
}

// navigate follows a navigation intent raised by the scanner.
func (sh *shell) navigate(path string) {
	id, from, ok := app.ParseProfilePath(path)
	if !ok {
		sh.log.Debug().Str("path", path).Msg("Ignoring navigation")
		return
	}

	sh.mu.Lock()
	screen := sh.screen
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
	defer cancel()

	var profile *app.ProfileScreen
	var err error
	if screen != nil && screen.Target().TargetID == from.TargetID {
		profile, err = screen.OpenProfile(ctx, id)
	} else {
		profile, err = sh.app.OpenProfile(ctx, id, from)
	}
	if err != nil {
		sh.printError("Error loading profile", err)
		return
	}
	sh.showProfile(profile)
	fmt.Print("\n> ")
}

func (sh *shell) accessDenied() {
	fmt.Println("\n⛔ Access Denied")
	fmt.Println("The backend rejected the API token. Check CHECKIN_API_TOKEN and restart.")
	sh.quit()
}

func (sh *shell) printError(action string, err error) {
	if errors.Is(err, app.ErrAccessDenied) {
		return
	}
	fmt.Printf("❌ %s: %v\n", action, err)
}
