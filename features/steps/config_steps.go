//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"transcode-worker/cmd"
	"transcode-worker/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	config     *config.Config
	env        map[string]string
	output     *bytes.Buffer
	err        error
}

var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.config = nil
		testCtx.env = make(map[string]string)
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^a config file with content:$`, testCtx.aConfigFileWithContent)
	ctx.Step(`^no config file exists$`, testCtx.noConfigFileExists)
	ctx.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIs)
	ctx.Step(`^I load the configuration$`, testCtx.iLoadTheConfiguration)
	ctx.Step(`^the configuration should have "([^"]*)" set to "([^"]*)"$`, testCtx.theConfigurationShouldHaveSetTo)
	ctx.Step(`^the configuration should be valid$`, testCtx.theConfigurationShouldBeValid)
	ctx.Step(`^the configuration should be invalid because "([^"]*)"$`, testCtx.theConfigurationShouldBeInvalidBecause)
	ctx.Step(`^I run config show$`, testCtx.iRunConfigShow)
	ctx.Step(`^I run config get "([^"]*)"$`, testCtx.iRunConfigGet)
	ctx.Step(`^I run config set "([^"]*)" to "([^"]*)"$`, testCtx.iRunConfigSetTo)
	ctx.Step(`^the config command should fail with "([^"]*)"$`, testCtx.theConfigCommandShouldFailWith)
	ctx.Step(`^the config output should contain "([^"]*)"$`, testCtx.theConfigOutputShouldContain)
	ctx.Step(`^the config output should not contain "([^"]*)"$`, testCtx.theConfigOutputShouldNotContain)
	ctx.Step(`^the config file should have "([^"]*)" set to "([^"]*)"$`, testCtx.theConfigFileShouldHaveSetTo)
}

func (c *configContext) aConfigFileWithContent(content *godog.DocString) error {
	return os.WriteFile(c.configPath, []byte(content.Content), 0644)
}

func (c *configContext) noConfigFileExists() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return os.Remove(c.configPath)
	}
	return nil
}

func (c *configContext) theEnvironmentVariableIs(key, value string) error {
	c.env[key] = value
	return nil
}

// iLoadTheConfiguration mirrors LoadWithEnv without touching the process environment
func (c *configContext) iLoadTheConfiguration() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		c.err = err
		return nil
	}
	cfg.ApplyEnv(func(key string) (string, bool) {
		v, ok := c.env[key]
		return v, ok
	})
	c.config = cfg
	return nil
}

func (c *configContext) loaded() (*config.Config, error) {
	if c.config == nil {
		if err := c.iLoadTheConfiguration(); err != nil {
			return nil, err
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.config, nil
}

func (c *configContext) theConfigurationShouldHaveSetTo(key, expected string) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	got, err := config.NewConfigManager(cfg, c.configPath).Get(key)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected %s %q, got %q", key, expected, got)
	}
	return nil
}

func (c *configContext) theConfigurationShouldBeValid() error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	return cmd.RunConfigValidateWithDependencies(cfg, c.output)
}

func (c *configContext) theConfigurationShouldBeInvalidBecause(reason string) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	err = cmd.RunConfigValidateWithDependencies(cfg, c.output)
	if err == nil {
		return fmt.Errorf("expected configuration to be invalid")
	}
	if !strings.Contains(err.Error(), reason) {
		return fmt.Errorf("expected error containing %q, got: %v", reason, err)
	}
	return nil
}

func (c *configContext) iRunConfigShow() error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigShowWithDependencies(cfg, c.output)
	return nil
}

func (c *configContext) iRunConfigGet(key string) error {
	cfg, err := c.loaded()
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigGetWithDependencies(cfg, c.configPath, key, c.output)
	return nil
}

func (c *configContext) iRunConfigSetTo(key, value string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.err = cmd.RunConfigSetWithDependencies(cfg, c.configPath, key, value, c.output)
	return nil
}

func (c *configContext) theConfigCommandShouldFailWith(text string) error {
	if c.err == nil {
		return fmt.Errorf("expected error containing %q, got nil", text)
	}
	if !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got: %v", text, c.err)
	}
	if text == "unknown config key" && !errors.Is(c.err, config.ErrUnknownKey) {
		return fmt.Errorf("expected ErrUnknownKey, got: %v", c.err)
	}
	return nil
}

func (c *configContext) theConfigOutputShouldContain(text string) error {
	if c.err != nil {
		return fmt.Errorf("config command failed: %w", c.err)
	}
	if !strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}

func (c *configContext) theConfigOutputShouldNotContain(text string) error {
	if strings.Contains(c.output.String(), text) {
		return fmt.Errorf("expected output not to contain %q, got:\n%s", text, c.output.String())
	}
	return nil
}

func (c *configContext) theConfigFileShouldHaveSetTo(key, expected string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	got, err := config.NewConfigManager(cfg, c.configPath).Get(key)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("expected %s %q in file, got %q", key, expected, got)
	}
	return nil
}
