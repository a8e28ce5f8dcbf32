package build

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Prefix starts every variable pkgstage exports to builds.
const Prefix = "PKGSTAGE"

// Folders locates one package on disk.
type Folders struct {
	Name    string
	Source  string
	Build   string
	Install string
}

// VarName turns a package name into the form used inside variable names:
// upper case, with every character outside [A-Z0-9] replaced by '_'.
// "Arieo-Core" becomes "ARIEO_CORE".
func VarName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// PublicEnv returns the variables every build sees: the root install folder
// and the install folder of each known package.
func PublicEnv(installRoot string, pkgs []Folders) map[string]string {
	env := map[string]string{
		Prefix + "_ROOT_INSTALL_FOLDER": installRoot,
	}
	for _, p := range pkgs {
		env[Prefix+"_PACKAGE_"+VarName(p.Name)+"_INSTALL_FOLDER"] = p.Install
	}
	return env
}

// PrivateEnv returns the variables only p's own build sees.
func PrivateEnv(p Folders) map[string]string {
	pkg := Prefix + "_PACKAGE_" + VarName(p.Name)
	cur := Prefix + "_CUR_PACKAGE"

	env := make(map[string]string, 6)
	env[pkg+"_SOURCE_FOLDER"] = p.Source
	env[pkg+"_BUILD_FOLDER"] = p.Build
	env[cur+"_NAME"] = p.Name
	env[cur+"_SOURCE_FOLDER"] = p.Source
	env[cur+"_BUILD_FOLDER"] = p.Build
	env[cur+"_INSTALL_FOLDER"] = p.Install
	return env
}

// Merge combines maps; later maps win.
func Merge(maps ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// Environ renders env as sorted KEY=VALUE pairs.
func Environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

var varPattern = regexp.MustCompile(`\$ENV\{([A-Za-z_][A-Za-z0-9_]*)\}|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Expand substitutes $ENV{VAR}, ${VAR} and $VAR with values from lookup.
// References lookup does not know are left for the shell.
func Expand(command string, lookup func(string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(command, func(m string) string {
		sub := varPattern.FindStringSubmatch(m)
		name := sub[1] + sub[2] + sub[3]
		if v, ok := lookup(name); ok {
			return v
		}
		return m
	})
}
