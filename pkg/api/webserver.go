package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"github.com/AdHoc10/gameplay-video-analyzer/pkg/analysis"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/annotation"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/utils"
	"github.com/AdHoc10/gameplay-video-analyzer/pkg/video"
)

//Server owns the pieces the HTTP handlers coordinate: the annotation store,
//the scrub/selection session for the loaded source and the analysis
//pipeline. The current source and schema are tracked here so the analyze
//endpoint can enforce its preconditions.
type Server struct {
	Store    *annotation.Store
	Session  *video.Session
	Pipeline *analysis.Pipeline

	mu         sync.Mutex
	sourceName string
	sourceURL  string
	schemaName string
}

//NewServer wires a Server from its collaborators
func NewServer(store *annotation.Store, session *video.Session, pipeline *analysis.Pipeline) *Server {
	return &Server{Store: store, Session: session, Pipeline: pipeline}
}

type annotationRequest struct {
	Start    float64  `json:"start"`
	End      *float64 `json:"end"`
	Tag      string   `json:"tag"`
	Modifier string   `json:"modifier"`
	Down     string   `json:"down"`
}

//SetRouter builds the HTTP API
func (s *Server) SetRouter() *gin.Engine {
	r := gin.Default()

	//serve html pages to client when a frontend build is configured
	if staticPath := viper.GetString("frontend.static-files-path"); staticPath != "" {
		r.Static("/client", staticPath)
	}

	apiRoutes := r.Group("/api")

	//--- source management ---

	apiRoutes.GET("/Videos", func(ctx *gin.Context) {
		if names, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.POST("/Upload", func(ctx *gin.Context) {
		file, fHeader, err := ctx.Request.FormFile("video")
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		defer file.Close()

		if existNames, err := utils.ListDir(viper.GetString("directory.source")); err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		} else if utils.InSlice(fHeader.Filename, existNames) {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		log.Printf("api/Upload: Received new file: name - '%s', size - %v Bytes", fHeader.Filename, fHeader.Size)

		fileBytes, err := io.ReadAll(file)
		if err != nil {
			log.Printf("api/Upload: Could not read request's body, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		srcFilePath := path.Join(viper.GetString("directory.source"), fHeader.Filename)
		if err = os.WriteFile(srcFilePath, fileBytes, 0644); err != nil {
			log.Printf("api/Upload: Could not write '%s' file, got '%v'", srcFilePath, err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		ctx.Status(http.StatusCreated)
	})

	apiRoutes.GET("/Play", func(ctx *gin.Context) {
		videoName := ctx.Query("name")
		if videoName == "" {
			ctx.Status(http.StatusNotAcceptable) //missing url parameter
			return
		}

		videoPath := path.Join(viper.GetString("directory.source"), videoName)
		if _, err := os.Stat(videoPath); err != nil {
			if os.IsNotExist(err) {
				ctx.Status(http.StatusNotFound)
			} else {
				ctx.Status(http.StatusInternalServerError)
			}
			return
		}

		ctx.Header("Content-Type", "video/mp4")
		http.ServeFile(ctx.Writer, ctx.Request, videoPath)
	})

	apiRoutes.POST("/Source", func(ctx *gin.Context) {
		var req struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		if req.Name == "" && req.URL == "" {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		s.mu.Lock()
		s.sourceName = req.Name
		s.sourceURL = req.URL
		s.mu.Unlock()

		s.Pipeline.ClearResults()
		s.Session.ClearSelection()
		ctx.Status(http.StatusOK)
	})

	apiRoutes.DELETE("/Source", func(ctx *gin.Context) {
		s.mu.Lock()
		s.sourceName = ""
		s.sourceURL = ""
		s.mu.Unlock()

		//no record outlives the source
		s.Store.Clear()
		s.Pipeline.ClearResults()
		s.Session.ClearSelection()
		ctx.Status(http.StatusOK)
	})

	//--- annotations ---

	apiRoutes.GET("/Annotations", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, s.Store.Snapshot())
	})

	apiRoutes.POST("/Annotations", func(ctx *gin.Context) {
		var req annotationRequest
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		id, ok := s.Store.Add(req.Start, req.End, req.Tag, req.Modifier, req.Down)
		if !ok {
			//duplicate (instant, tag) pair - dropped by design
			ctx.Status(http.StatusConflict)
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"id": id})
	})

	apiRoutes.POST("/Annotations/QuickAdd", func(ctx *gin.Context) {
		var req struct {
			Tag string `json:"tag"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		id, ok := s.Session.QuickAdd(req.Tag)
		if !ok {
			ctx.Status(http.StatusConflict)
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"id": id})
	})

	apiRoutes.PATCH("/Annotations/:id", func(ctx *gin.Context) {
		var req struct {
			TagName  *string `json:"tagName"`
			Modifier *string `json:"modifier"`
			Down     *string `json:"down"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		id := ctx.Param("id")
		if req.TagName != nil && !s.Store.UpdateTagName(id, *req.TagName) {
			ctx.Status(http.StatusConflict)
			return
		}
		if req.Modifier != nil {
			s.Store.UpdateModifier(id, *req.Modifier)
		}
		if req.Down != nil {
			s.Store.UpdateDown(id, *req.Down)
		}
		ctx.Status(http.StatusOK)
	})

	apiRoutes.DELETE("/Annotations/:id", func(ctx *gin.Context) {
		s.Store.Remove(ctx.Param("id"))
		ctx.Status(http.StatusOK)
	})

	apiRoutes.POST("/Annotations/DeleteMany", func(ctx *gin.Context) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		ids := make(map[string]bool, len(req.IDs))
		for _, id := range req.IDs {
			ids[id] = true
		}
		s.Store.RemoveMany(ids)
		ctx.Status(http.StatusOK)
	})

	apiRoutes.POST("/Annotations/Clear", func(ctx *gin.Context) {
		s.Store.Clear()
		ctx.Status(http.StatusOK)
	})

	//--- schema import / export ---

	apiRoutes.POST("/Schema", func(ctx *gin.Context) {
		file, fHeader, err := ctx.Request.FormFile("schema")
		if err != nil {
			ctx.Status(http.StatusNotAcceptable)
			return
		}
		defer file.Close()

		res, err := s.Store.ImportCSV(file)
		if err != nil {
			log.Printf("api/Schema: Rejected import of '%s', got '%v'", fHeader.Filename, err)
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		s.mu.Lock()
		s.schemaName = fHeader.Filename
		s.mu.Unlock()

		ctx.JSON(http.StatusOK, gin.H{"imported": res.Imported, "skipped": res.Skipped})
	})

	apiRoutes.DELETE("/Schema", func(ctx *gin.Context) {
		s.mu.Lock()
		s.schemaName = ""
		s.mu.Unlock()

		s.Store.Clear()
		s.Pipeline.ClearResults()
		ctx.Status(http.StatusOK)
	})

	apiRoutes.GET("/Export/CSV", func(ctx *gin.Context) {
		data, err := s.Store.ExportCSV()
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Header("Content-Disposition", "attachment; filename="+annotation.ExportFileName("csv"))
		ctx.Data(http.StatusOK, "text/csv", data)
	})

	apiRoutes.GET("/Export/JSON", func(ctx *gin.Context) {
		data, err := s.Store.ExportJSON()
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Header("Content-Disposition", "attachment; filename="+annotation.ExportFileName("json"))
		ctx.Data(http.StatusOK, "application/json", data)
	})

	//--- session ---

	apiRoutes.GET("/Session", func(ctx *gin.Context) {
		st := s.Session.State()
		ctx.JSON(http.StatusOK, gin.H{
			"current":  st.Current,
			"duration": st.Duration,
			"selStart": st.SelStart,
			"selEnd":   st.SelEnd,
			"conflict": st.Conflict,
		})
	})

	apiRoutes.POST("/Session/TimeEdit", func(ctx *gin.Context) {
		var req struct {
			Time string `json:"time"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"time": s.Session.CommitTimeEdit(req.Time)})
	})

	apiRoutes.POST("/Session/Step", func(ctx *gin.Context) {
		var req struct {
			Dir int `json:"dir"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"current": s.Session.Step(req.Dir)})
	})

	apiRoutes.POST("/Session/MarkStart", func(ctx *gin.Context) {
		s.Session.MarkStart()
		ctx.Status(http.StatusOK)
	})

	apiRoutes.POST("/Session/MarkEnd", func(ctx *gin.Context) {
		s.Session.MarkEnd()
		ctx.Status(http.StatusOK)
	})

	apiRoutes.POST("/Session/ClearSelection", func(ctx *gin.Context) {
		s.Session.ClearSelection()
		ctx.Status(http.StatusOK)
	})

	apiRoutes.POST("/Session/Commit", func(ctx *gin.Context) {
		var req struct {
			Tag      string `json:"tag"`
			Modifier string `json:"modifier"`
			Down     string `json:"down"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		id, ok := s.Session.CommitAnnotation(req.Tag, req.Modifier, req.Down)
		if !ok {
			ctx.Status(http.StatusConflict)
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{"id": id})
	})

	//--- analysis ---

	apiRoutes.POST("/Analyze", func(ctx *gin.Context) {
		s.mu.Lock()
		sourceName, sourceURL, schemaName := s.sourceName, s.sourceURL, s.schemaName
		s.mu.Unlock()

		if schemaName == "" {
			ctx.JSON(http.StatusPreconditionFailed, gin.H{"error": analysis.ErrNoSchema.Error()})
			return
		}
		if sourceURL != "" && video.IsRestrictedSource(sourceURL) {
			ctx.JSON(http.StatusConflict, gin.H{"error": analysis.ErrNotSeekable.Error()})
			return
		}
		if sourceName == "" {
			ctx.Status(http.StatusNotAcceptable)
			return
		}

		sampler, err := video.OpenFileSampler(path.Join(viper.GetString("directory.source"), sourceName))
		if err != nil {
			log.Printf("api/Analyze: Error, got '%v'", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}

		go func() {
			defer sampler.Close()
			if err := s.Pipeline.Run(sampler); err != nil && !errors.Is(err, analysis.ErrAnalysisRunning) {
				log.Printf("api/Analyze: Error, got '%v'", err)
			}
		}()

		ctx.Status(http.StatusAccepted)
	})

	apiRoutes.GET("/Analysis", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  s.Pipeline.Status(),
			"results": s.Pipeline.Results(),
		})
	})

	apiRoutes.POST("/Analysis/Clear", func(ctx *gin.Context) {
		s.Pipeline.ClearResults()
		ctx.Status(http.StatusOK)
	})

	apiRoutes.GET("/Analysis/Export", func(ctx *gin.Context) {
		data, err := s.Pipeline.ExportJSON()
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Header("Content-Disposition", "attachment; filename="+analysis.ExportFileName())
		ctx.Data(http.StatusOK, "application/json", data)
	})

	return r
}
