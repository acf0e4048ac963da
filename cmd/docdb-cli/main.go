// Command docdb-cli is a small demo binary exercising pkg/docdb end to end:
// insert/find/remove/count/compact against a journal file on disk.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/docdb/pkg/docdb"
)

type options struct {
	File string `long:"file" description:"Path to the journal file" value-name:"path" required:"true"`

	Insert string `long:"insert" description:"JSON document to insert" value-name:"json"`
	Find   string `long:"find" description:"JSON query to find documents" value-name:"json"`
	Remove string `long:"remove" description:"JSON query of documents to remove" value-name:"json"`
	Count  string `long:"count" description:"JSON query to count documents" value-name:"json"`
	Compact bool  `long:"compact" description:"Force a journal compaction"`
}

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	log := zap.Must(logConfig.Build())
	defer log.Sync()
	log = log.Named("docdb-cli")

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "--file db.jsonl [--insert '{...}'] [--find '{...}'] [--remove '{...}'] [--count '{...}'] [--compact]"
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	db, err := docdb.New(log, docdb.Config{
		Filename: opts.File,
		Autoload: true,
	})
	if err != nil {
		log.Fatal("open datastore", zap.Error(err))
	}
	defer db.Close()

	if opts.Insert != "" {
		runInsert(log, db, opts.Insert)
	}
	if opts.Find != "" {
		runFind(log, db, opts.Find)
	}
	if opts.Remove != "" {
		runRemove(log, db, opts.Remove)
	}
	if opts.Count != "" {
		runCount(log, db, opts.Count)
	}
	if opts.Compact {
		if err := db.Compact(); err != nil {
			log.Fatal("compact", zap.Error(err))
		}
		fmt.Println("compacted")
	}
}

func runInsert(log *zap.Logger, db *docdb.Datastore, raw string) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Fatal("parse --insert JSON", zap.Error(err))
	}
	stored, err := db.Insert(doc)
	if err != nil {
		log.Fatal("insert", zap.Error(err))
	}
	printJSON(stored)
}

func runFind(log *zap.Logger, db *docdb.Datastore, raw string) {
	var query map[string]any
	if err := json.Unmarshal([]byte(raw), &query); err != nil {
		log.Fatal("parse --find JSON", zap.Error(err))
	}
	docs, err := db.Find(query).Exec()
	if err != nil {
		log.Fatal("find", zap.Error(err))
	}
	for _, d := range docs {
		printJSON(d)
	}
}

func runRemove(log *zap.Logger, db *docdb.Datastore, raw string) {
	var query map[string]any
	if err := json.Unmarshal([]byte(raw), &query); err != nil {
		log.Fatal("parse --remove JSON", zap.Error(err))
	}
	n, err := db.Remove(query)
	if err != nil {
		log.Fatal("remove", zap.Error(err))
	}
	fmt.Printf("removed %d\n", n)
}

func runCount(log *zap.Logger, db *docdb.Datastore, raw string) {
	var query map[string]any
	if err := json.Unmarshal([]byte(raw), &query); err != nil {
		log.Fatal("parse --count JSON", zap.Error(err))
	}
	n, err := db.Count(query)
	if err != nil {
		log.Fatal("count", zap.Error(err))
	}
	fmt.Println(n)
}

func printJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(b))
}
