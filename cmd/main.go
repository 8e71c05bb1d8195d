package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/analysis"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/annotation"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/api"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/timecode"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/video"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	viper.SetDefault("http.port", "8080")
	viper.SetDefault("video.fps", timecode.DefaultFPS)
	viper.SetDefault("directory.root", "./data")
	viper.SetDefault("directory.source", "./data/source")
	viper.SetDefault("directory.exports", "./data/exports")
	viper.SetDefault("analysis.model-path", "./models/model.pb")
	viper.SetDefault("analysis.score-threshold", 0.5)
	viper.SetDefault("analysis.max-results", 25)
	viper.SetDefault("analysis.input-size", 320)

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error: Could not read config file, got '%v'", err)
		}
	}

	//create missing directories from config file
	for _, dir := range viper.GetStringMapString("directory") {
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0766); err != nil {
					log.Printf("Error Creating '%s' directory, got '%v'", dir, err)
				}
			}
		}
	}

	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05",
		}),
	)

	quant := timecode.NewQuantizer(viper.GetFloat64("video.fps"))
	store := annotation.NewStore(quant)
	session := video.NewSession(store)

	classifier := analysis.NewClassifier(analysis.ClassifierConfig{
		CarrierLabels:   viper.GetStringSlice("analysis.labels.carrier"),
		DefenderLabels:  viper.GetStringSlice("analysis.labels.defender"),
		AttackerLabels:  viper.GetStringSlice("analysis.labels.attacker"),
		FallbackByIndex: fallbackTable(),
	})

	newDetector := func() (analysis.Detector, error) {
		return analysis.NewDNNDetector(analysis.DNNConfig{
			ModelPath:      viper.GetString("analysis.model-path"),
			ConfigPath:     viper.GetString("analysis.config-path"),
			ScoreThreshold: float32(viper.GetFloat64("analysis.score-threshold")),
			MaxResults:     viper.GetInt("analysis.max-results"),
			InputSize:      viper.GetInt("analysis.input-size"),
			Labels:         viper.GetStringSlice("analysis.class-labels"),
		})
	}

	pipeline := analysis.NewPipeline(store, classifier, newDetector, logger)

	r := api.NewServer(store, session, pipeline).SetRouter()
	if err := r.Run(":" + viper.GetString("http.port")); err != nil {
		log.Fatalf("Error: Got '%v'", err)
	}
}

//fallbackTable reads the configured class index -> role label map, e.g.
//  analysis:
//    fallback-index:
//      0: BALL_CARRIER
//      1: DEFENDER
//      2: ATTACKER
func fallbackTable() map[int]string {
	raw := viper.GetStringMapString("analysis.fallback-index")
	if len(raw) == 0 {
		return nil
	}
	table := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			log.Printf("Error: Ignoring non-numeric fallback-index key '%s'", k)
			continue
		}
		table[idx] = v
	}
	return table
}
