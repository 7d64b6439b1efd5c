package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/berrysocial/feedstate/feedstate"
)

const FeedCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Feed control.

The default urls are:
    api_url: https://api.berrysocial.com
    push_url: wss://push.berrysocial.com

Usage:
    feedctl login [--api_url=<api_url>]
        --user_auth=<user_auth>
    feedctl watch [--api_url=<api_url>] [--push_url=<push_url>] --token=<token>
        --feed=<feed>
    feedctl post [--api_url=<api_url>] --token=<token>
        --feed=<feed>
        [<message>]
    feedctl react [--api_url=<api_url>] --token=<token>
        --activity=<activity_id>
        --type=<type>

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --api_url=<api_url>
    --push_url=<push_url>
    --user_auth=<user_auth>
    --token=<token>            Your platform token.
    --feed=<feed>              Feed id, e.g. user:lucy
    --activity=<activity_id>
    --type=<type>              Reaction type, e.g. like`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], FeedCtlVersion)
	if err != nil {
		panic(err)
	}

	if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	} else if post_, _ := opts.Bool("post"); post_ {
		post(opts)
	} else if react_, _ := opts.Bool("react"); react_ {
		react(opts)
	}
}

func apiUrl(opts docopt.Opts) string {
	if apiUrl, err := opts.String("--api_url"); err == nil && apiUrl != "" {
		return apiUrl
	}
	return "https://api.berrysocial.com"
}

func pushUrl(opts docopt.Opts) string {
	if pushUrl, err := opts.String("--push_url"); err == nil && pushUrl != "" {
		return pushUrl
	}
	return "wss://push.berrysocial.com"
}

func newApi(opts docopt.Opts) *feedstate.FeedApi {
	api := feedstate.NewFeedApi(apiUrl(opts))
	if token, err := opts.String("--token"); err == nil {
		api.SetToken(token)
	}
	return api
}

func newClientContext(opts docopt.Opts) *feedstate.ClientContext {
	token, err := opts.String("--token")
	if err != nil {
		return feedstate.NewClientContext()
	}
	clientContext, err := feedstate.NewClientContextFromToken(token)
	if err != nil {
		Err.Printf("Could not parse token: %s\n", err)
		return feedstate.NewClientContext()
	}
	return clientContext
}

func login(opts docopt.Opts) {
	userAuth, _ := opts.String("--user_auth")

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		panic(err)
	}

	api := newApi(opts)
	result, err := api.AuthLoginSync(&feedstate.AuthLoginArgs{
		UserAuth: userAuth,
		Password: string(passwordBytes),
	})
	if err != nil {
		panic(err)
	}
	if result.Error != nil {
		Err.Printf("Login error: %s\n", result.Error.Message)
		os.Exit(1)
	}
	Out.Printf("%s\n", result.Token)
}

func watch(opts docopt.Opts) {
	feed, _ := opts.String("--feed")
	token, _ := opts.String("--token")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feedstate.SetLogScopeLevel("feedctl", feedstate.LogLevelInfo)
	log := feedstate.LogFn(feedstate.LogLevelInfo, "feedctl")

	api := newApi(opts)
	engine := feedstate.NewFeedEngineWithDefaults(ctx, feed, api, newClientContext(opts))
	defer engine.Close()

	unsub := engine.On(func(event *feedstate.PushEvent) {
		log("[%s] %s", event.CreatedAt, event.Type)
	})
	defer unsub()

	push := feedstate.NewPushTransportWithDefaults(ctx, pushUrl(opts), token, engine)
	defer push.Close()

	if _, err := engine.GetOrCreate(ctx, &feedstate.GetOrCreateFeedArgs{
		Watch: true,
	}); err != nil {
		panic(err)
	}

	state := engine.GetLatest()
	Out.Printf("%s: %d activities\n", feed, len(state.Activities))
	for _, activity := range state.Activities {
		Out.Printf("  %s %s\n", activity.Id, activity.Text)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
}

func post(opts docopt.Opts) {
	feed, _ := opts.String("--feed")
	message, _ := opts.String("<message>")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := newApi(opts)
	engine := feedstate.NewFeedEngineWithDefaults(ctx, feed, api, newClientContext(opts))
	defer engine.Close()

	activity, err := engine.AddActivity(ctx, &feedstate.AddActivityArgs{
		Text: message,
	})
	if err != nil {
		panic(err)
	}
	Out.Printf("%s\n", activity.Id)
}

func react(opts docopt.Opts) {
	activityId, _ := opts.String("--activity")
	reactionType, _ := opts.String("--type")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := newApi(opts)
	// the feed is not used for a reaction call
	engine := feedstate.NewFeedEngineWithDefaults(ctx, "", api, newClientContext(opts))
	defer engine.Close()

	reaction, err := engine.AddReaction(ctx, &feedstate.AddReactionArgs{
		ActivityId: activityId,
		Type:       reactionType,
	})
	if err != nil {
		panic(err)
	}
	Out.Printf("%s %s\n", reaction.ActivityId, reaction.Type)
}
