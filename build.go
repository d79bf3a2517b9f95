//go:build ignore

// build.go - HR Analytics build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, analyzer, gendata, test, sample, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var (
	rootDir string
	distDir string

	// Executables (key = directory under cmd/, value = output name)
	executables = map[string]string{
		"analyzer": "hr-analyzer",
		"gendata":  "hr-gendata",
	}

	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("Failed to get current directory: %v", err))
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	if _, err := os.Stat(filepath.Join(rootDir, "go.mod")); os.IsNotExist(err) {
		panic("go.mod not found, run build.go from the repository root")
	}
}

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	startTime := time.Now()

	switch *target {
	case "all":
		for _, name := range []string{"analyzer", "gendata"} {
			buildExecutable(name, *verbose)
		}
	case "analyzer", "gendata":
		buildExecutable(*target, *verbose)
	case "test":
		runTests(*verbose)
	case "sample":
		generateSample(*verbose)
	case "clean":
		clean()
	default:
		showHelp()
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Done in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "      HR Analytics - Build System          " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func goCommand(verbose bool, args ...string) *exec.Cmd {
	cmd := exec.Command("go", args...)
	cmd.Dir = rootDir
	if verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func buildExecutable(name string, verbose bool) {
	exeName := executables[name]
	if runtime.GOOS == "windows" {
		exeName += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s...", name))

	outputPath := filepath.Join(distDir, exeName)
	args := []string{"build", "-trimpath", "-ldflags", "-s -w", "-o", outputPath, "./cmd/" + name}
	if verbose {
		args = append([]string{"build", "-v"}, args[1:]...)
	}

	if err := goCommand(verbose, args...).Run(); err != nil {
		printError(fmt.Sprintf("Failed to build %s: %v", name, err))
		os.Exit(1)
	}

	if info, err := os.Stat(outputPath); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exeName, float64(info.Size())/1024/1024))
	}
}

func runTests(verbose bool) {
	printInfo("Running Go tests...")
	args := []string{"test", "-race"}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")

	if err := goCommand(verbose, args...).Run(); err != nil {
		printError(fmt.Sprintf("Go tests failed: %v", err))
		os.Exit(1)
	}
	printSuccess("All tests passed")
}

// generateSample writes data/mitarbeiter.csv and analyzes it into dist/analysis_results.
func generateSample(verbose bool) {
	input := filepath.Join(rootDir, "data", "mitarbeiter.csv")
	printInfo("Generating sample data...")
	if err := goCommand(verbose, "run", "./cmd/gendata", "-n", "200", "-out", input).Run(); err != nil {
		printError(fmt.Sprintf("Failed to generate sample data: %v", err))
		os.Exit(1)
	}

	printInfo("Analyzing sample data...")
	out := filepath.Join(distDir, "analysis_results")
	if err := goCommand(verbose, "run", "./cmd/analyzer", "-in", input, "-out", out).Run(); err != nil {
		printError(fmt.Sprintf("Analysis failed: %v", err))
		os.Exit(1)
	}
	printSuccess("Report written to " + out)
}

func clean() {
	printInfo("Cleaning build artifacts and logs...")
	for _, dir := range []string{distDir, filepath.Join(rootDir, "logs")} {
		if err := os.RemoveAll(dir); err != nil {
			printError(fmt.Sprintf("Failed to clean %s: %v", dir, err))
		}
	}
	printSuccess("Build artifacts cleaned")
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all       Build hr-analyzer and hr-gendata into dist/")
	fmt.Println("  analyzer  Build hr-analyzer")
	fmt.Println("  gendata   Build hr-gendata")
	fmt.Println("  test      Run Go tests with the race detector")
	fmt.Println("  sample    Generate sample data and analyze it")
	fmt.Println("  clean     Remove dist/ and logs/")
}
