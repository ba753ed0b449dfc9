package flags

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestUniqueFlagNames asserts no two flags share a name.
func TestUniqueFlagNames(t *testing.T) {
	seen := make(map[string]struct{})
	for _, flag := range Flags {
		for _, name := range flag.Names() {
			if _, ok := seen[name]; ok {
				t.Errorf("duplicate flag name %s", name)
			}
			seen[name] = struct{}{}
		}
	}
}

// TestEnvVarFormat asserts every flag binds an environment variable with
// the service prefix derived from its name.
func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flag := flag
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVarLowerGetter")
			envFlags := envFlagGetter.GetEnvVars()
			require.Len(t, envFlags, 1, "flags should have exactly one env var")
			expectedEnvVar := EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
			require.Equal(t, expectedEnvVar, envFlags[0])
		})
	}
}

func TestCheckRequiredAcceptsDefaults(t *testing.T) {
	app := cli.NewApp()
	app.Flags = Flags
	app.Action = func(ctx *cli.Context) error {
		return CheckRequired(ctx)
	}
	require.NoError(t, app.Run([]string{"specforge"}))
}

func TestOptionalFlagsAreAllRegistered(t *testing.T) {
	for _, flag := range optionalFlags {
		require.True(t, slices.Contains(Flags, flag))
	}
}
