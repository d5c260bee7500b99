// Command mockgen writes a synthetic source tree with a known call structure,
// for exercising codekg scans at scale.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Config represents the mock project configuration
type Config struct {
	OutputDir      string
	Lang           string
	NumPackages    int
	NumFuncsPerPkg int
	MaxDepth       int
	CallDensity    float64 // average calls per function
	Seed           uint64
}

// FuncInfo represents a function in the mock project
type FuncInfo struct {
	Package string
	Name    string
	Depth   int
	PkgIdx  int
}

func main() {
	cfg := Config{}
	flag.StringVar(&cfg.OutputDir, "o", "./mock-project", "output directory")
	flag.StringVar(&cfg.Lang, "lang", "py", "language of the generated files: py or go")
	flag.IntVar(&cfg.NumPackages, "pkgs", 20, "number of packages")
	flag.IntVar(&cfg.NumFuncsPerPkg, "funcs", 100, "functions per package")
	flag.IntVar(&cfg.MaxDepth, "depth", 10, "maximum call depth")
	flag.Float64Var(&cfg.CallDensity, "density", 3.0, "average calls per function")
	flag.Uint64Var(&cfg.Seed, "seed", 1, "random seed, equal seeds give equal trees")
	flag.Parse()

	if cfg.Lang != "py" && cfg.Lang != "go" {
		fmt.Fprintf(os.Stderr, "unknown language %q\n", cfg.Lang)
		os.Exit(2)
	}

	fmt.Printf("Generating mock project...\n")
	fmt.Printf("  packages:       %d\n", cfg.NumPackages)
	fmt.Printf("  funcs/package:  %d\n", cfg.NumFuncsPerPkg)
	fmt.Printf("  total funcs:    %d\n", cfg.NumPackages*cfg.NumFuncsPerPkg)
	fmt.Printf("  max depth:      %d\n", cfg.MaxDepth)
	fmt.Printf("  call density:   %.1f\n", cfg.CallDensity)

	if err := generateProject(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✓ Project written to %s\n", cfg.OutputDir)
	fmt.Printf("\nNext:\n  codekg scan %s --save -o /dev/null\n", cfg.OutputDir)
}

func generateProject(cfg *Config) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	if cfg.Lang == "go" {
		gomod := "module example.com/mockproject\n\ngo 1.22\n"
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, "go.mod"), []byte(gomod), 0o644); err != nil {
			return err
		}
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))

	allFuncs := generateFuncRegistry(cfg)
	funcsByDepth := organizeFuncsByDepth(allFuncs, cfg.MaxDepth)

	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		start := pkgIdx * cfg.NumFuncsPerPkg
		pkgFuncs := allFuncs[start : start+cfg.NumFuncsPerPkg]

		calls := make(map[string][]*FuncInfo, len(pkgFuncs))
		for _, fn := range pkgFuncs {
			calls[fn.Name] = generateCalls(rng, fn, funcsByDepth, cfg)
		}

		var err error
		if cfg.Lang == "go" {
			err = writeGoPackage(cfg, pkgFuncs, calls)
		} else {
			err = writePyModule(cfg, pkgFuncs, calls)
		}
		if err != nil {
			return err
		}
		fmt.Printf("  ✓ %s (%d/%d)\n", pkgFuncs[0].Package, pkgIdx+1, cfg.NumPackages)
	}
	return nil
}

func generateFuncRegistry(cfg *Config) []*FuncInfo {
	var funcs []*FuncInfo
	for pkgIdx := 0; pkgIdx < cfg.NumPackages; pkgIdx++ {
		for funcIdx := 0; funcIdx < cfg.NumFuncsPerPkg; funcIdx++ {
			funcs = append(funcs, &FuncInfo{
				Package: fmt.Sprintf("pkg%02d", pkgIdx),
				Name:    fmt.Sprintf("func%04d", funcIdx),
				PkgIdx:  pkgIdx,
			})
		}
	}
	return funcs
}

// organizeFuncsByDepth spreads functions evenly across depth layers
func organizeFuncsByDepth(allFuncs []*FuncInfo, maxDepth int) [][]*FuncInfo {
	funcsByDepth := make([][]*FuncInfo, maxDepth+1)
	for i, fn := range allFuncs {
		fn.Depth = i % (maxDepth + 1)
		funcsByDepth[fn.Depth] = append(funcsByDepth[fn.Depth], fn)
	}
	return funcsByDepth
}

// generateCalls picks callees only from deeper layers and from the same or
// later packages, so the call graph is acyclic and imports never cycle.
func generateCalls(rng *rand.Rand, fn *FuncInfo, funcsByDepth [][]*FuncInfo, cfg *Config) []*FuncInfo {
	nextDepth := fn.Depth + 1
	if nextDepth >= len(funcsByDepth) || len(funcsByDepth[nextDepth]) == 0 {
		return nil
	}

	numCalls := rng.IntN(max(int(cfg.CallDensity*2), 1)) + 1
	if numCalls > int(cfg.CallDensity*1.5) {
		numCalls = int(cfg.CallDensity)
	}

	var calls []*FuncInfo
	seen := make(map[*FuncInfo]bool)
	for i := 0; i < numCalls; i++ {
		var pool []*FuncInfo
		if rng.Float64() < 0.8 {
			pool = funcsByDepth[nextDepth]
		} else {
			for d := nextDepth; d < len(funcsByDepth); d++ {
				pool = append(pool, funcsByDepth[d]...)
			}
		}
		target := pool[rng.IntN(len(pool))]
		if target != fn && !seen[target] && target.PkgIdx >= fn.PkgIdx {
			calls = append(calls, target)
			seen[target] = true
		}
	}
	return calls
}

func writePyModule(cfg *Config, funcs []*FuncInfo, calls map[string][]*FuncInfo) error {
	pkg := funcs[0].Package
	var sb strings.Builder
	for _, imp := range importsOf(pkg, funcs, calls) {
		fmt.Fprintf(&sb, "import %s\n", imp)
	}
	sb.WriteString("\nDATA_PATH = \"data/" + pkg + ".json\"\n\n")

	for _, fn := range funcs {
		fmt.Fprintf(&sb, "def %s(value):\n", fn.Name)
		sb.WriteString("    result = value\n")
		for i, c := range calls[fn.Name] {
			if c.Package == pkg {
				fmt.Fprintf(&sb, "    result += %s(result + %d)\n", c.Name, i)
			} else {
				fmt.Fprintf(&sb, "    result += %s.%s(result + %d)\n", c.Package, c.Name, i)
			}
		}
		sb.WriteString("    return result\n\n")
	}
	return os.WriteFile(filepath.Join(cfg.OutputDir, pkg+".py"), []byte(sb.String()), 0o644)
}

func writeGoPackage(cfg *Config, funcs []*FuncInfo, calls map[string][]*FuncInfo) error {
	pkg := funcs[0].Package
	dir := filepath.Join(cfg.OutputDir, pkg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	if imports := importsOf(pkg, funcs, calls); len(imports) > 0 {
		sb.WriteString("import (\n")
		for _, imp := range imports {
			fmt.Fprintf(&sb, "\t\"example.com/mockproject/%s\"\n", imp)
		}
		sb.WriteString(")\n\n")
	}

	for _, fn := range funcs {
		name := strings.ToUpper(fn.Name[:1]) + fn.Name[1:]
		fmt.Fprintf(&sb, "// %s is a mock function at depth %d\n", name, fn.Depth)
		fmt.Fprintf(&sb, "func %s(input int) int {\n\tresult := input\n", name)
		for i, c := range calls[fn.Name] {
			callee := strings.ToUpper(c.Name[:1]) + c.Name[1:]
			if c.Package != pkg {
				callee = c.Package + "." + callee
			}
			fmt.Fprintf(&sb, "\tresult += %s(result + %d)\n", callee, i)
		}
		sb.WriteString("\treturn result\n}\n\n")
	}
	return os.WriteFile(filepath.Join(dir, "code.go"), []byte(sb.String()), 0o644)
}

// importsOf lists the other packages a package calls into, in package order
func importsOf(pkg string, funcs []*FuncInfo, calls map[string][]*FuncInfo) []string {
	seen := make(map[string]bool)
	var imports []string
	for _, fn := range funcs {
		for _, c := range calls[fn.Name] {
			if c.Package != pkg && !seen[c.Package] {
				seen[c.Package] = true
				imports = append(imports, c.Package)
			}
		}
	}
	slices.Sort(imports)
	return imports
}
