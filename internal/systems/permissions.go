package systems

import (
	"strings"

	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/internal/domain"
)

// CommandKind - класс команды с точки зрения прав доступа.
type CommandKind uint8

const (
	KindRead CommandKind = iota
	KindCreateEntity
	KindUpdateEntity
	KindCreateMap
	KindConfigureSession // активная карта, правила, инициатива
	KindPlaceObject
	KindMoveObject
	KindRemoveObject
	KindPersistence // save / load
)

var commandKindToString = map[CommandKind]string{
	KindRead:             "READ",
	KindCreateEntity:     "CREATE_ENTITY",
	KindUpdateEntity:     "UPDATE_ENTITY",
	KindCreateMap:        "CREATE_MAP",
	KindConfigureSession: "CONFIGURE_SESSION",
	KindPlaceObject:      "PLACE_OBJECT",
	KindMoveObject:       "MOVE_OBJECT",
	KindRemoveObject:     "REMOVE_OBJECT",
	KindPersistence:      "PERSISTENCE",
}

func (k CommandKind) String() string {
	if s, ok := commandKindToString[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Mutates - меняет ли команда каноническое состояние.
func (k CommandKind) Mutates() bool {
	return k != KindRead
}

// Authorize решает, может ли actor выполнить команду над target (target может быть nil).
//
// Правила:
//   - чтение доступно всем;
//   - ГМ может всё;
//   - игрок может только двигать токен, которым владеет (или токен "all").
func Authorize(actor *domain.User, kind CommandKind, target domain.Object) error {
	if kind == KindRead {
		return nil
	}
	if actor == nil {
		return apperr.Denied("unknown user cannot run %s commands", strings.ToLower(kind.String()))
	}
	if actor.IsGM() {
		return nil
	}

	if kind == KindMoveObject {
		tok, ok := target.(*domain.Token)
		if !ok {
			return apperr.Denied("only the GM can move this object").
				WithMetadata("user", actor.Username)
		}
		if tok.OwnedBy(actor.ID) {
			return nil
		}
		return apperr.Denied("you do not control token '%s'", tok.ID).
			WithMetadata("user", actor.Username).
			WithMetadata("object", tok.ID)
	}

	return apperr.Denied("only the GM can run %s commands", strings.ToLower(kind.String())).
		WithMetadata("user", actor.Username)
}
