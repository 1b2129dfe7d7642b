package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Leul120/portfolio/internal/domain"
	"github.com/Leul120/portfolio/internal/queue"
)

// itemPtr lets the generic handlers bind into T and call the domain.Item methods on *T.
type itemPtr[T any] interface {
	*T
	domain.Item
}

// collectionRoutes registers post-, update- and delete- routes for one embedded collection.
func collectionRoutes[T any, P itemPtr[T]](g gin.IRoutes, h *Handler, name string, coll domain.Collection) {
	g.POST("/post-"+name, postItem[T, P](h, coll))
	g.PUT("/update-"+name+"/:id", updateItem[T, P](h, coll))
	g.DELETE("/delete-"+name+"/:id", h.deleteItem(coll))
}

func postItem[T any, P itemPtr[T]](h *Handler, coll domain.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, ok := bindItem[T, P](c)
		if !ok {
			return
		}
		me := currentPrincipal(c)
		p, err := h.Store.AppendItem(c.Request.Context(), me.ID, coll, item)
		if err != nil {
			h.storeError(c, "post "+string(coll), err)
			return
		}
		id := item.ItemID().Hex()
		h.emitItem(c, coll, "create", id)
		c.JSON(http.StatusOK, gin.H{"user": h.present(c.Request.Context(), p), "id": id})
	}
}

func updateItem[T any, P itemPtr[T]](h *Handler, coll domain.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := pathID(c)
		if !ok {
			return
		}
		item, ok := bindItem[T, P](c)
		if !ok {
			return
		}
		me := currentPrincipal(c)
		p, err := h.Store.UpdateItem(c.Request.Context(), me.ID, coll, itemID, item)
		if err != nil {
			h.storeError(c, "update "+string(coll), err)
			return
		}
		h.emitItem(c, coll, "replace", itemID.Hex())
		c.JSON(http.StatusOK, gin.H{"user": h.present(c.Request.Context(), p)})
	}
}

func (h *Handler) deleteItem(coll domain.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := pathID(c)
		if !ok {
			return
		}
		me := currentPrincipal(c)
		p, err := h.Store.RemoveItem(c.Request.Context(), me.ID, coll, itemID)
		if err != nil {
			h.storeError(c, "delete "+string(coll), err)
			return
		}
		h.emitItem(c, coll, "delete", itemID.Hex())
		c.JSON(http.StatusOK, gin.H{"user": h.present(c.Request.Context(), p)})
	}
}

func bindItem[T any, P itemPtr[T]](c *gin.Context) (P, bool) {
	var (
		in   T
		none P
	)
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return none, false
	}
	item := P(&in)
	if err := item.Validate(); err != nil {
		badRequest(c, err)
		return none, false
	}
	return item, true
}

func pathID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) emitItem(c *gin.Context, coll domain.Collection, op, itemID string) {
	h.emit(c, queue.KeyProfileUpdated, queue.ProfileUpdated{
		UserID:     currentPrincipal(c).ID.Hex(),
		Collection: string(coll),
		Op:         op,
		ItemID:     itemID,
		At:         time.Now().UTC(),
	})
}
