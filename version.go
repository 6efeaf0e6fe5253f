package main

// set with -ldflags "-X main.gitSHA1=... -X main.buildDate=..."
var (
	version   string = "0.1.0"
	gitSHA1   string = "unknown"
	gitDirty  string = "unknown"
	buildDate string = "unknown"
)

func Version() string {
	v := version
	if gitSHA1 != "unknown" {
		v += " (git:" + gitSHA1
		if gitDirty != "unknown" && gitDirty != "0" {
			v += "-dirty"
		}
		v += ")"
	}
	if buildDate != "unknown" {
		v += " built " + buildDate
	}
	return v
}
