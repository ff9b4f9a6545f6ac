package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/expert/pkg/expert"
	"github.com/cognicore/expert/pkg/expert/config"
	"github.com/cognicore/expert/pkg/expert/infer"
	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/rule"
	"github.com/cognicore/expert/pkg/expert/ruleio"
	"github.com/cognicore/expert/pkg/expert/store"
	"github.com/cognicore/expert/pkg/expert/store/kbfile"
	"github.com/cognicore/expert/pkg/expert/store/sqlite"
)

type command struct {
	name  string
	alias string
	desc  string
}

var menu = []command{
	{"add fact", "af", "Assert a fact (condition attributes only)"},
	{"add rule", "ar", "Add a rule (SE ... ENTÃO ...)"},
	{"list facts", "lf", "List current facts"},
	{"list rules", "lr", "List current rules"},
	{"list vars", "lv", "List attributes derived from the rules"},
	{"remove fact", "rf", "Remove a fact by attribute"},
	{"remove rule", "rr", "Remove a rule by ID"},
	{"forward", "fw", "Forward chain to fixpoint"},
	{"prove", "bk", "Prove a goal by backward chaining"},
	{"why", "wy", "Explain why a fact is true"},
	{"how", "hw", "Explain how a fact was derived"},
	{"save", "sv", "Save the knowledge base to a YAML file"},
	{"load", "ld", "Load a knowledge base from a YAML file"},
	{"import rules", "rt", "Import rules from a .txt or .html file"},
	{"db save", "ds", "Save a named snapshot to the database"},
	{"db load", "dl", "Load a named snapshot from the database"},
	{"db list", "dx", "List snapshots in the database"},
	{"undo", "un", "Undo the last operation"},
	{"help", "h", "Show all commands"},
	{"quit", "q", "Exit"},
}

type shell struct {
	sys *expert.System
	db  store.Store
	in  *bufio.Scanner
}

func main() {
	var (
		configPath = flag.String("config", "", "Session config file (YAML)")
		dbPath     = flag.String("db", "", "SQLite snapshot database (optional)")
		kbPath     = flag.String("kb", "", "Knowledge base YAML file to load at startup")
		rulesPath  = flag.String("rules", "", "Rule file (.txt or .html) to import at startup")
		maxRounds  = flag.Int("max-rounds", 0, "Forward chaining round limit (0 = default)")
	)
	flag.Parse()

	loader := &config.Loader{
		ConfigPath: *configPath,
		DBPath:     *dbPath,
		KBPath:     *kbPath,
		RulesPath:  *rulesPath,
		MaxRounds:  *maxRounds,
	}
	comp, err := loader.Load()
	if err != nil {
		log.Fatal(err)
	}

	sys := expert.New(expert.Options{MaxRounds: comp.MaxRounds})
	if comp.Snapshot != nil {
		if err := sys.Import(*comp.Snapshot); err != nil {
			log.Fatal(err)
		}
	}
	if len(comp.Rules.Rules) > 0 || len(comp.Rules.Errors) > 0 {
		added, rejected := sys.ImportRules(comp.Rules)
		log.Printf("imported %d rule(s)", added)
		for _, e := range comp.Rules.Errors {
			log.Printf("skipped: %s", e)
		}
		for _, e := range rejected {
			log.Printf("rejected: %v", e)
		}
	}

	sh := &shell{sys: sys, in: bufio.NewScanner(os.Stdin)}
	if comp.DBPath != "" {
		db, err := sqlite.Open(context.Background(), comp.DBPath)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		sh.db = db
	}

	sh.run()
}

func (sh *shell) run() {
	fmt.Println("===========================================")
	fmt.Println("  Expert Shell")
	fmt.Println("  Facts, SE ... ENTÃO rules, inference")
	fmt.Println("===========================================")

	for {
		sh.printStatus()
		raw := sh.prompt("> ")
		if raw == "" {
			continue
		}
		cmd := resolveCommand(raw)
		if cmd == "" {
			fmt.Println("Unknown command. Type a number, an alias, or 'h' for help.")
			continue
		}
		if cmd == "quit" {
			fmt.Println("Bye.")
			return
		}
		sh.dispatch(cmd)
	}
}

func (sh *shell) printStatus() {
	facts, rules := sh.sys.Facts(), sh.sys.Rules()
	fmt.Printf("\n[%d rule(s), %d fact(s)] type 'h' for the menu\n", len(rules), len(facts))
}

func (sh *shell) dispatch(cmd string) {
	switch cmd {
	case "add fact":
		sh.addFact()
	case "add rule":
		sh.addRule()
	case "list facts":
		sh.listFacts()
	case "list rules":
		sh.listRules()
	case "list vars":
		sh.listVars()
	case "remove fact":
		sh.removeFact()
	case "remove rule":
		sh.removeRule()
	case "forward":
		sh.forward()
	case "prove":
		sh.prove()
	case "why":
		sh.why()
	case "how":
		sh.how()
	case "save":
		sh.save()
	case "load":
		sh.load()
	case "import rules":
		sh.importRules()
	case "db save":
		sh.dbSave()
	case "db load":
		sh.dbLoad()
	case "db list":
		sh.dbList()
	case "undo":
		sh.undo()
	case "help":
		printHelp()
	}
}

func resolveCommand(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(menu) {
			return menu[n-1].name
		}
		return ""
	}
	for _, c := range menu {
		if s == c.alias || s == c.name {
			return c.name
		}
	}
	var matches []string
	for _, c := range menu {
		if strings.HasPrefix(c.name, s) {
			matches = append(matches, c.name)
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}
	return ""
}

func printHelp() {
	fmt.Println("\nCommands:")
	for i, c := range menu {
		fmt.Printf("%2d. %-14s [%s] - %s\n", i+1, c.name, c.alias, c.desc)
	}
	fmt.Println("Type a number, an alias, or a name prefix.")
}

func (sh *shell) prompt(msg string) string {
	fmt.Print(msg)
	if !sh.in.Scan() {
		return ""
	}
	return strings.TrimSpace(sh.in.Text())
}

func (sh *shell) confirm(msg string) bool {
	ans := strings.ToLower(sh.prompt(msg + " [y/N]: "))
	return ans == "y" || ans == "yes" || ans == "s" || ans == "sim"
}

// pick shows a numbered list and accepts a number, an exact name, or a
// unique substring.
func (sh *shell) pick(options []string, header string) string {
	if len(options) == 0 {
		fmt.Println("(no options)")
		return ""
	}
	fmt.Println(header)
	for i, o := range options {
		fmt.Printf("%2d. %s\n", i+1, o)
	}
	s := sh.prompt("Pick a number or name (ENTER to cancel): ")
	if s == "" {
		return ""
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1]
		}
		fmt.Println("Invalid index.")
		return ""
	}
	low := strings.ToLower(s)
	var partial []string
	for _, o := range options {
		if strings.EqualFold(o, s) {
			return o
		}
		if strings.Contains(strings.ToLower(o), low) {
			partial = append(partial, o)
		}
	}
	if len(partial) == 1 {
		return partial[0]
	}
	if len(partial) > 1 {
		fmt.Println("Ambiguous, candidates:", strings.Join(partial, ", "))
	}
	return ""
}

func (sh *shell) addFact() {
	attrs := sh.sys.Catalog().ConditionAttrs()
	if len(attrs) == 0 {
		fmt.Println("(no condition attributes yet; add rules first)")
		return
	}
	attr := sh.pick(attrs, "\nCondition attributes:")
	if attr == "" {
		fmt.Println("Cancelled.")
		return
	}
	if examples := sh.sys.ExampleValues(attr, 5); len(examples) > 0 {
		parts := make([]string, len(examples))
		for i, v := range examples {
			parts[i] = v.String()
		}
		fmt.Printf("Example values for %s (from the rules): %s\n", attr, strings.Join(parts, ", "))
	}
	raw := sh.prompt(fmt.Sprintf("Value for %s: ", attr))
	if raw == "" {
		fmt.Println("Cancelled.")
		return
	}
	v := rule.ParseValue(raw)
	err := sh.sys.AddFact(attr, v, false)
	if errors.Is(err, internalerr.ErrContradiction) {
		if sh.confirm(fmt.Sprintf("%v. Overwrite?", err)) {
			err = sh.sys.AddFact(attr, v, true)
		} else {
			fmt.Println("Cancelled.")
			return
		}
	}
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Fact added: %s = %s\n", attr, v)
}

func (sh *shell) addRule() {
	text := sh.prompt("Rule (SE <cond> E <cond> ENTÃO <attr> = <valor>): ")
	if text == "" {
		fmt.Println("Cancelled.")
		return
	}
	id, err := sh.sys.AddRuleText(text)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Rule #%d added.\n", id)
}

func (sh *shell) listFacts() {
	facts := sh.sys.Facts()
	if len(facts) == 0 {
		fmt.Println("(no facts)")
		return
	}
	for i, f := range facts {
		fmt.Printf("%2d. %s = %s (%s)\n", i+1, f.Attr, f.Value, f.Status)
	}
}

func (sh *shell) listRules() {
	rules := sh.sys.Rules()
	if len(rules) == 0 {
		fmt.Println("(no rules)")
		return
	}
	for _, r := range rules {
		fmt.Printf("- Rule #%d: %s\n", r.ID, r)
	}
}

func (sh *shell) listVars() {
	cat := sh.sys.Catalog()
	attrs := cat.Attrs()
	if len(attrs) == 0 {
		fmt.Println("(no attributes; add or import rules)")
		return
	}
	fmt.Println("Attributes from the rules:")
	for _, a := range attrs {
		fmt.Printf("  %-20s %s\n", a, cat.Role(a))
	}
}

func (sh *shell) removeFact() {
	facts := sh.sys.Facts()
	options := make([]string, len(facts))
	for i, f := range facts {
		options[i] = f.Attr
	}
	attr := sh.pick(options, "\nFacts:")
	if attr == "" {
		fmt.Println("Cancelled.")
		return
	}
	if !sh.confirm(fmt.Sprintf("Remove fact %q?", attr)) {
		fmt.Println("Cancelled.")
		return
	}
	if err := sh.sys.RemoveFact(attr); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Fact removed:", attr)
}

func (sh *shell) removeRule() {
	s := sh.prompt("Rule ID to remove: ")
	id, err := strconv.Atoi(s)
	if err != nil {
		fmt.Println("Enter a numeric ID.")
		return
	}
	if !sh.confirm(fmt.Sprintf("Remove rule #%d?", id)) {
		fmt.Println("Cancelled.")
		return
	}
	if err := sh.sys.RemoveRule(id); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Printf("Rule #%d removed.\n", id)
}

func (sh *shell) forward() {
	res, err := sh.sys.ForwardChain()
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(res.Derived) == 0 {
		fmt.Println("No new facts derived.")
	}
	for _, f := range res.Derived {
		fmt.Printf("[new] %s = %s\n", f.Attr, f.Value)
	}
	for _, c := range res.Conflicts {
		fmt.Println("[conflict]", c)
	}
}

func (sh *shell) prove() {
	attrs := sh.sys.Catalog().ConclusionAttrs()
	if len(attrs) == 0 {
		fmt.Println("(no goal attributes yet; add rules first)")
		return
	}
	attr := sh.pick(attrs, "\nGoal attributes (rule conclusions):")
	if attr == "" {
		fmt.Println("Cancelled.")
		return
	}
	var goal rule.Value
	if values := sh.sys.GoalValues(attr); len(values) > 0 {
		options := make([]string, len(values))
		for i, v := range values {
			options[i] = v.String()
		}
		picked := sh.pick(options, fmt.Sprintf("\nPossible values for %s:", attr))
		if picked == "" {
			fmt.Println("Cancelled.")
			return
		}
		goal = rule.ParseValue(picked)
	} else {
		raw := sh.prompt(fmt.Sprintf("Goal value for %s: ", attr))
		if raw == "" {
			fmt.Println("Cancelled.")
			return
		}
		goal = rule.ParseValue(raw)
	}

	res := sh.sys.Prove(attr, goal)
	fmt.Printf("[goal] %s = %s -> %s\n", attr, goal, strings.ToUpper(string(res.Outcome)))
	switch {
	case res.Outcome == infer.Proved:
		if tree, err := sh.sys.How(attr); err == nil {
			fmt.Println("\nDerivation:")
			fmt.Print(tree.Render())
		}
	case res.Cyclic:
		fmt.Println("Cyclic rule dependency:", strings.Join(res.CyclePath, " -> "))
	default:
		if len(res.Diagnosis) == 0 {
			fmt.Printf("No rule concludes %s = %s.\n", attr, goal)
		}
		for _, d := range res.Diagnosis {
			fmt.Printf("- Rule #%d: %s\n", d.RuleID, d.RuleText)
			for _, cs := range d.Conditions {
				fmt.Printf("    %s\n", cs)
			}
		}
	}
}

func (sh *shell) why() {
	attr := sh.pickFact("\nFacts (pick one to explain why):")
	if attr == "" {
		return
	}
	j, err := sh.sys.Why(attr)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%s = %s because rule #%d fired", j.Attr, j.Value, j.RuleID)
	if j.RuleText != "" {
		fmt.Printf(" (%s)", j.RuleText)
	}
	fmt.Println()
	for _, p := range j.Premises {
		fmt.Printf("  premise: %s = %s\n", p.Attr, p.Value)
	}
	if j.Stale {
		fmt.Println("  [stale: a supporting fact was removed or changed]")
	}
}

func (sh *shell) how() {
	attr := sh.pickFact("\nFacts (pick one to explain how):")
	if attr == "" {
		return
	}
	tree, err := sh.sys.How(attr)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Print(tree.Render())
}

func (sh *shell) pickFact(header string) string {
	facts := sh.sys.Facts()
	if len(facts) == 0 {
		fmt.Println("(no facts)")
		return ""
	}
	options := make([]string, len(facts))
	for i, f := range facts {
		options[i] = f.Attr
	}
	attr := sh.pick(options, header)
	if attr == "" {
		fmt.Println("Cancelled.")
	}
	return attr
}

func (sh *shell) save() {
	path := sh.prompt("File name [kb.yaml]: ")
	if path == "" {
		path = "kb.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if !sh.confirm(fmt.Sprintf("%q exists. Overwrite?", path)) {
			fmt.Println("Cancelled.")
			return
		}
	}
	if err := kbfile.Save(path, sh.sys.Export()); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Saved to", path)
}

func (sh *shell) load() {
	path := sh.prompt("File to load [kb.yaml]: ")
	if path == "" {
		path = "kb.yaml"
	}
	if !sh.confirm(fmt.Sprintf("Load %q? (replaces the current base)", path)) {
		fmt.Println("Cancelled.")
		return
	}
	snap, err := kbfile.Load(path)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if err := sh.sys.Import(snap); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Loaded from", path)
}

func (sh *shell) importRules() {
	path := sh.prompt("Rule file (.txt or .html) [rules.txt]: ")
	if path == "" {
		path = "rules.txt"
	}
	res, err := ruleio.LoadFile(path)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	added, rejected := sh.sys.ImportRules(res)
	fmt.Printf("%d rule(s) imported.\n", added)
	for _, e := range res.Errors {
		fmt.Println("  skipped:", e)
	}
	for _, e := range rejected {
		fmt.Println("  rejected:", e)
	}
}

func (sh *shell) dbSave() {
	if sh.db == nil {
		fmt.Println("No database configured (start with -db).")
		return
	}
	name := sh.prompt("Snapshot name: ")
	if name == "" {
		fmt.Println("Cancelled.")
		return
	}
	if err := sh.db.SaveSnapshot(context.Background(), name, sh.sys.Export()); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Snapshot saved:", name)
}

func (sh *shell) dbLoad() {
	if sh.db == nil {
		fmt.Println("No database configured (start with -db).")
		return
	}
	name := sh.prompt("Snapshot name: ")
	if name == "" {
		fmt.Println("Cancelled.")
		return
	}
	if !sh.confirm(fmt.Sprintf("Load snapshot %q? (replaces the current base)", name)) {
		fmt.Println("Cancelled.")
		return
	}
	snap, err := sh.db.LoadSnapshot(context.Background(), name)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if err := sh.sys.Import(snap); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Snapshot loaded:", name)
}

func (sh *shell) dbList() {
	if sh.db == nil {
		fmt.Println("No database configured (start with -db).")
		return
	}
	infos, err := sh.db.ListSnapshots(context.Background())
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if len(infos) == 0 {
		fmt.Println("(no snapshots)")
		return
	}
	for _, info := range infos {
		fmt.Printf("- %s: %d fact(s), %d rule(s), saved %s\n",
			info.Name, info.Facts, info.Rules, info.SavedAt.Format("2006-01-02 15:04"))
	}
}

func (sh *shell) undo() {
	if err := sh.sys.Undo(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Undone.")
}
