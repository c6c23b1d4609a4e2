package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/recall-server/internal/logger"
	"github.com/listenupapp/recall-server/internal/service"
)

// ProvideTagService provides the tag hierarchy and ownership service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Component("tags")), nil
}

// ProvideQuestionService provides the next-question selector.
func ProvideQuestionService(i do.Injector) (*service.QuestionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tagService := do.MustInvoke[*service.TagService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewQuestionService(storeHandle.Store, tagService, log.Component("questions")), nil
}
