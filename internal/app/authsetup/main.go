package authsetup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"bitbucket.org/airenas/callnotes/internal/pkg/store"
	"bitbucket.org/airenas/callnotes/internal/pkg/token"
	"bitbucket.org/airenas/callnotes/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var appName = "Call Notes Authorization Setup"

var rootCmd = &cobra.Command{
	Use:   "authSetupService",
	Short: appName,
	Long:  `Signs the sender account in to Microsoft Graph and stores the refresh token`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	cmdapp.Config.SetDefault("auth.redirectURL", "http://localhost:8400/callback")
	cmdapp.Config.SetDefault("auth.timeout", "10m")
}

//Execute starts the setup
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)
	stores := store.NewFactory()
	defer stores.Close()
	ts, err := stores.TokenStore()
	cmdapp.CheckOrPanic(err, "Can't init token store")
	cfg, err := token.NewConfig()
	cmdapp.CheckOrPanic(err, "Can't init oauth config")
	tm, err := token.NewManager(cfg, ts)
	cmdapp.CheckOrPanic(err, "Can't init token manager")

	data := &ServiceData{Exchanger: tm, RedirectURL: cmdapp.Config.GetString("auth.redirectURL"),
		State: uuid.New().String(), Result: make(chan error, 1)}
	err = authorize(data, cmdapp.DurationOrDefault("auth.timeout", 10*time.Minute))
	cmdapp.CheckOrPanic(err, "Authorization failed")
	cmdapp.Log.Info("Refresh token saved")
}

func authorize(data *ServiceData, timeout time.Duration) error {
	u, err := url.Parse(data.RedirectURL)
	if err != nil || u.Host == "" {
		return errors.Errorf("Wrong auth.redirectURL '%s'", data.RedirectURL)
	}
	r, err := NewRouter(data)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: u.Host, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			data.Result <- errors.Wrap(err, "Can't start callback listener")
		}
	}()
	defer func() {
		ctx, cf := context.WithTimeout(context.Background(), 5*time.Second)
		defer cf()
		cmdapp.LogIf(srv.Shutdown(ctx))
	}()

	fmt.Printf("\nOpen this URL in a browser and sign in as the sender account:\n\n%s\n\n",
		data.Exchanger.AuthCodeURL(data.State, data.RedirectURL))
	cmdapp.Log.Infof("Waiting for callback at %s", data.RedirectURL)

	sc := utils.NewSignalChannel()
	defer sc.Close()
	select {
	case err := <-data.Result:
		return err
	case <-sc.C:
		return errors.New("Interrupted")
	case <-time.After(timeout):
		return errors.New("Timeout waiting for the callback")
	}
}
