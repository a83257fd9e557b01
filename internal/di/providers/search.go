package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/pixelworld/pixelworld-server/internal/config"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/search"
)

// SearchIndexHandle wraps the search index and its update queue with shutdown
// capability. Both are nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
	Observer *search.Observer
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	h.Observer.Stop()
	return h.Close()
}

// ProvideSearchIndex provides the Bleve room index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Room search disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: filepath.Join(cfg.Data.BasePath, "search"),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{
		SearchIndex: index,
		Observer:    search.NewObserver(index, log.Logger),
	}, nil
}
