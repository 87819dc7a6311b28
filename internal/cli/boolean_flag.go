package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeName       = "bool"
	toggleTrueLiteral        = "true"
	toggleAcceptedLiterals   = "true, false, yes, no, on, off, 1, 0"
	toggleInvalidValueFormat = "invalid boolean value %q for --%s; accepted values: %s"
	toggleArgumentFormat     = "--%s=%s"
	flagPrefix               = "--"
	argumentTerminator       = "--"
)

var toggleLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// parseToggleLiteral maps a user supplied literal to a boolean. An empty literal means true.
func parseToggleLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	parsed, known := toggleLiterals[normalized]
	return parsed, known
}

// toggleValue is a pflag.Value accepting the literals of toggleLiterals.
type toggleValue struct {
	target   *bool
	flagName string
}

func (value *toggleValue) Set(input string) error {
	parsed, known := parseToggleLiteral(input)
	if !known || value.target == nil {
		return fmt.Errorf(toggleInvalidValueFormat, input, value.flagName, toggleAcceptedLiterals)
	}
	*value.target = parsed
	return nil
}

func (value *toggleValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleValue) Type() string {
	return toggleFlagTypeName
}

// registerBooleanFlag registers a boolean flag that also accepts yes/no style values.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagSet.Var(&toggleValue{target: target, flagName: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = toggleTrueLiteral
}

// normalizeBooleanFlagArguments joins "--flag value" pairs into "--flag=value" when flag is a
// boolean flag of the command tree and value is a boolean literal. pflag would otherwise treat
// the value as a positional argument.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	booleanFlags := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanFlags)

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == argumentTerminator {
			return append(normalized, arguments[index:]...)
		}
		flagName, isLongFlag := strings.CutPrefix(argument, flagPrefix)
		_, isBoolean := booleanFlags[flagName]
		if isLongFlag && isBoolean && !strings.Contains(flagName, "=") && index+1 < len(arguments) {
			next := arguments[index+1]
			if _, known := parseToggleLiteral(next); known && next != "" && !strings.HasPrefix(next, "-") {
				normalized = append(normalized, fmt.Sprintf(toggleArgumentFormat, flagName, next))
				index++
				continue
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, target map[string]struct{}) {
	collect := func(flag *pflag.Flag) {
		if flag.Value != nil && flag.Value.Type() == toggleFlagTypeName {
			target[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(collect)
	command.Flags().VisitAll(collect)
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, target)
	}
}
