package callnotes

import (
	"context"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"bitbucket.org/airenas/callnotes/internal/pkg/consultant"
	"bitbucket.org/airenas/callnotes/internal/pkg/extract"
	"bitbucket.org/airenas/callnotes/internal/pkg/gemini"
	"bitbucket.org/airenas/callnotes/internal/pkg/google"
	"bitbucket.org/airenas/callnotes/internal/pkg/graph"
	"bitbucket.org/airenas/callnotes/internal/pkg/inform"
	"bitbucket.org/airenas/callnotes/internal/pkg/metrics"
	"bitbucket.org/airenas/callnotes/internal/pkg/rabbit"
	"bitbucket.org/airenas/callnotes/internal/pkg/store"
	"bitbucket.org/airenas/callnotes/internal/pkg/token"
	oidc "github.com/coreos/go-oidc"
	"github.com/heptiolabs/healthcheck"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const metricsNamespace = "callnotes"

var appName = "Call Notes Service"

var rootCmd = &cobra.Command{
	Use:   "callNotesService",
	Short: appName,
	Long:  `Service polls transcripts, summarizes them and posts call notes to Teams`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 3978, "Default service port")
	cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	cmdapp.Config.SetDefault("port", 3978)
	cmdapp.Config.SetDefault("poll.interval", "5m")
	cmdapp.Config.SetDefault("processor.wordThreshold", 300)
	cmdapp.Config.SetDefault("processor.processedPrefix", "[PROCESSED] ")
	cmdapp.Config.SetDefault("bot.jwksURL", "https://login.botframework.com/v1/.well-known/keys")
	cmdapp.Config.SetDefault("bot.issuer", "https://api.botframework.com")
}

//Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	data := &ServiceData{Port: cmdapp.Config.GetInt("port")}
	data.health = healthcheck.NewHandler()

	stores := store.NewFactory()
	defer stores.Close()
	tokenStore, err := stores.TokenStore()
	cmdapp.CheckOrPanic(err, "Can't init token store")
	seeded, err := store.Seed(tokenStore, cmdapp.Config.GetString("graph.refreshToken"))
	cmdapp.CheckOrPanic(err, "Can't seed token store")
	if seeded {
		cmdapp.Log.Info("Saved configured refresh token to the store")
	}
	data.Recipients, err = stores.RecipientStore()
	cmdapp.CheckOrPanic(err, "Can't init recipient store")
	if sp := stores.Mongo(); sp != nil {
		data.health.AddLivenessCheck("mongo", healthcheck.Async(sp.Healthy, 10*time.Second))
	}
	data.health.AddReadinessCheck("token", healthcheck.Async(func() error {
		t, err := tokenStore.Load()
		if err == nil && t == "" {
			err = errors.New("No refresh token, run authSetupService")
		}
		return err
	}, time.Minute))

	oCfg, err := token.NewConfig()
	cmdapp.CheckOrPanic(err, "Can't init oauth config")
	tokens, err := token.NewManager(oCfg, tokenStore)
	cmdapp.CheckOrPanic(err, "Can't init token manager")
	if w, ok := tokenStore.(interface{ Watch(func()) error }); ok {
		cmdapp.LogIf(w.Watch(tokens.Invalidate))
	}

	gc, err := graph.NewClient(tokens, data.Recipients)
	cmdapp.CheckOrPanic(err, "Can't init graph client")
	data.Sender = gc

	pm, err := metrics.NewPipeline(metricsNamespace)
	cmdapp.CheckOrPanic(err, "Can't init metrics")
	data.metrics.responseDur, err = metrics.NewHTTPDuration(metricsNamespace)
	cmdapp.CheckOrPanic(err, "Can't init metrics")

	sc, err := gemini.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init gemini client")
	sc.WithAttemptsCounter(pm.SummarizeAttempts)

	opts, err := google.ClientOptions()
	cmdapp.CheckOrPanic(err, "Can't init google credentials")
	ds, ss, err := google.NewServices(context.Background(), opts...)
	cmdapp.CheckOrPanic(err, "Can't init google services")
	after, err := parseCutoff(cmdapp.Config.GetString("processor.createdAfter"))
	cmdapp.CheckOrPanic(err, "Can't parse processor.createdAfter")
	files, err := google.NewFileStore(ds, cmdapp.Config.GetString("drive.folderID"),
		cmdapp.Config.GetString("processor.processedPrefix"), after)
	cmdapp.CheckOrPanic(err, "Can't init drive")
	sheet, err := google.NewSheet(ss, cmdapp.Config.GetString("sheets.spreadsheetID"))
	cmdapp.CheckOrPanic(err, "Can't init sheets")
	data.health.AddReadinessCheck("sheets", healthcheck.Async(func() error {
		ctx, cf := context.WithTimeout(context.Background(), 30*time.Second)
		defer cf()
		return sheet.Ping(ctx)
	}, 5*time.Minute))

	resolver, err := consultant.NewResolver(cmdapp.Config.GetString("consultant.match"))
	cmdapp.CheckOrPanic(err, "Can't init consultant resolver")

	proc, err := NewProcessor(files, sheet, sheet, extract.NewExtractor(), resolver, sc, gc,
		cmdapp.IntOrDefault("processor.wordThreshold", 300))
	cmdapp.CheckOrPanic(err, "Can't init processor")
	proc.WithMetrics(pm).WithAuthCheck(tokens)

	if ex := cmdapp.Config.GetString("events.exchange"); ex != "" {
		cp, err := rabbit.NewChannelProvider()
		cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
		defer cp.Close()
		data.health.AddLivenessCheck("rabbit", healthcheck.Async(cp.Healthy, 10*time.Second))
		pub, err := rabbit.NewPublisher(cp, ex)
		cmdapp.CheckOrPanic(err, "Can't init publisher")
		proc.WithPublisher(pub)
	}

	if to := cmdapp.Config.GetString("alert.email"); to != "" {
		es, err := inform.NewSimpleEmailSender()
		cmdapp.CheckOrPanic(err, "Can't init email sender")
		defer es.Close()
		al, err := inform.NewAlerter(es, to, cmdapp.Config.GetString("smtp.username"))
		cmdapp.CheckOrPanic(err, "Can't init alerter")
		proc.WithAlerter(al)
	}

	if appID := cmdapp.Config.GetString("bot.appID"); appID != "" {
		ks := oidc.NewRemoteKeySet(context.Background(), cmdapp.Config.GetString("bot.jwksURL"))
		data.Verifier = oidc.NewVerifier(cmdapp.Config.GetString("bot.issuer"), ks, &oidc.Config{ClientID: appID})
	} else {
		cmdapp.Log.Warn("No bot.appID, /api/messages disabled")
	}

	timer := newTimerServiceData(cmdapp.DurationOrDefault("poll.interval", 5*time.Minute), proc)
	data.Status = timer
	err = startTimer(timer)
	cmdapp.CheckOrPanic(err, "Can't start timer")

	err = StartWebServer(data)
	close(timer.qChan)
	<-timer.workWaitChan
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func parseCutoff(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, l := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("Wrong time '%s'", s)
}
