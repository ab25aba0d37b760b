package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/datatheorem/dtupload/pkg/artifact"
	"github.com/datatheorem/dtupload/pkg/config"
	"github.com/datatheorem/dtupload/pkg/credential"
	"github.com/datatheorem/dtupload/pkg/secret"
	"github.com/datatheorem/dtupload/pkg/transport"
	"github.com/datatheorem/dtupload/pkg/uploadapi"
)

var (
	previousResult string
	resultFile     string
)

// errUploadFailed marks outcomes the CI host should map to "unstable":
// the build itself is fine, only the upload step did not complete.
var errUploadFailed = errors.New("upload step did not complete")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Locate the configured build and upload it to Data Theorem",
	Long: `Locate the configured mobile build in the artifact archive or the job
workspace and upload it to the Data Theorem Upload API.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&previousResult, "previous-result", "",
		"Result of the preceding CI step (success, unstable, failure, not_built, aborted); "+
			"unstable or worse skips the upload entirely")
	sendCmd.Flags().StringVar(&resultFile, "result-file", "",
		"Write the final operation result to this file as JSON (overrides upload.result_file)")
}

// resultSeverity orders CI step results from best to worst. The skip
// threshold in shouldSkip is host policy, not part of the upload protocol.
var resultSeverity = map[string]int{
	"success":   0,
	"unstable":  1,
	"failure":   2,
	"not_built": 3,
	"aborted":   4,
}

// shouldSkip reports whether the previous step result is bad enough that
// uploading a build from it would be pointless.
func shouldSkip(previous string) (bool, error) {
	if previous == "" {
		return false, nil
	}

	rank, ok := resultSeverity[strings.ToLower(previous)]
	if !ok {
		return false, fmt.Errorf("unknown previous result %q", previous)
	}

	return rank >= resultSeverity["unstable"], nil
}

func runSend(cmd *cobra.Command, args []string) error {
	log.Info("Data Theorem upload step starting")

	skip, err := shouldSkip(previousResult)
	if err != nil {
		return err
	}

	if skip {
		log.WithField("previous_result", previousResult).
			Info("Skipping Data Theorem upload because the previous step result is unstable or worse")

		return finish(
			uploadapi.Skipped("skipped: previous step result is "+previousResult),
			resultFile,
		)
	}

	if cfgFile == "" {
		return fmt.Errorf("config file is required (use --config)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	out := resultFile
	if out == "" {
		out = cfg.Upload.ResultFile
	}

	log.WithField("build", cfg.Upload.BuildName).Info("Uploading the build to Data Theorem")

	loc, err := artifact.NewLocator(log).Find(
		cfg.Upload.BuildName, cfg.Upload.ArtifactDir, cfg.Upload.WorkspaceDir,
	)
	if err != nil {
		return fmt.Errorf("locating build: %w", err)
	}

	if loc == nil {
		return finish(uploadapi.Failed(
			uploadapi.KindNotFound,
			"unable to find any build with name "+cfg.Upload.BuildName,
		), out)
	}

	log.WithFields(logrus.Fields{
		"path":            loc.Path,
		"in_artifact_dir": loc.InArtifactDir,
	}).Info("Found the build")

	if cfg.Upload.DontUpload {
		log.Info(`Skipping upload: "don't upload" option enabled`)

		return finish(uploadapi.Succeeded(
			"found build at "+loc.Path+"; upload skipped by configuration",
		), out)
	}

	key, err := resolveKey(cfg)
	if err != nil {
		return finish(uploadapi.Failed(uploadapi.KindCredentialError, err.Error()), out)
	}

	proxy := cfg.ProxyConfig()
	if proxy.Enabled() {
		log.WithField("proxy", proxy.Address()).Info("Using proxy configuration")
	} else {
		log.Info("No proxy configuration")
	}

	httpClient, err := transport.NewClient(proxy)
	if err != nil {
		return fmt.Errorf("building HTTP client: %w", err)
	}

	client := uploadapi.New(log, httpClient, version)

	return finish(client.SendBuild(cmd.Context(), key, loc.Path), out)
}

// resolveKey picks the credential source: a literal key from the job
// configuration wins, otherwise the key comes from the environment the
// CI host's secret store populates.
func resolveKey(cfg *config.Config) (secret.Secret, error) {
	var resolver credential.Resolver
	if !cfg.Upload.APIKey.IsZero() {
		resolver = credential.NewStatic(cfg.Upload.APIKey)
	} else {
		resolver = credential.FromEnv(cfg.Upload.APIKeyEnv)
	}

	return resolver.Resolve()
}

// finish reports the final result: optionally written as JSON for
// downstream tooling, always logged in full (the message may embed the
// raw server payload, which support asks for).
func finish(res uploadapi.Result, out string) error {
	if out != "" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}

		if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing result file: %w", err)
		}
	}

	if res.Success {
		log.Info(res.Message)

		return nil
	}

	log.Error(res.Message)

	return fmt.Errorf("%w: %s", errUploadFailed, res.Message)
}
