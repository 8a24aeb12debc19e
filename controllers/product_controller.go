package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mansatask/mansatask-api/services"
	"github.com/mansatask/mansatask-api/utils"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// List returns the merchant's products, optionally filtered by ?search=
func (ctl *ProductController) List(c *gin.Context) {
	utils.LogInfo("ListProducts called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	pagination := utils.NewPagination(c)
	products, total, err := ctl.products.List(c.Request.Context(), userID, c.Query("search"), pageFrom(pagination))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}

	pagination.SetTotal(total)
	utils.LogInfo("Retrieved %d products for user ID: %d", len(products), userID)
	pagination.Respond(c, "Products retrieved successfully", gin.H{"products": products})
}

func (ctl *ProductController) Create(c *gin.Context) {
	utils.LogInfo("CreateProduct called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := ctl.products.Create(c.Request.Context(), userID, req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Created(c, "Product created successfully", gin.H{"product": product})
}

func (ctl *ProductController) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "product ID")
	if !ok {
		return
	}

	product, err := ctl.products.Get(c.Request.Context(), userID, id)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Product retrieved successfully", gin.H{"product": product})
}

func (ctl *ProductController) Update(c *gin.Context) {
	utils.LogInfo("UpdateProduct called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "product ID")
	if !ok {
		return
	}

	var req services.UpdateProductInput
	if !bindJSON(c, &req) {
		return
	}

	product, err := ctl.products.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Product updated successfully", gin.H{"product": product})
}

func (ctl *ProductController) Delete(c *gin.Context) {
	utils.LogInfo("DeleteProduct called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id", "product ID")
	if !ok {
		return
	}

	if err := ctl.products.Delete(c.Request.Context(), userID, id); err != nil {
		utils.RespondWithError(c, err)
		return
	}
	utils.Success(c, "Product deleted successfully", nil)
}

// UploadImage takes a multipart "image" field and stores it with a thumbnail
func (ctl *ProductController) UploadImage(c *gin.Context) {
	utils.LogInfo("UploadProductImage called")

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		utils.LogError("No image file in request: %v", err)
		utils.BadRequest(c, "No image file provided", nil)
		return
	}
	if err := utils.ValidateImageFile(file); err != nil {
		utils.LogError("Invalid image file: %v", err)
		utils.BadRequest(c, err.Error(), nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.LogError("Failed to open uploaded file: %v", err)
		utils.InternalServerError(c, "Failed to process file", nil)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, utils.MaxFileSize+1))
	if err != nil {
		utils.LogError("Failed to read uploaded file: %v", err)
		utils.InternalServerError(c, "Failed to process file", nil)
		return
	}

	uploaded, err := ctl.products.UploadImage(c.Request.Context(), file.Filename, data)
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}

	utils.LogInfo("Product image uploaded by user ID: %d", userID)
	utils.Created(c, "Image uploaded successfully", uploaded)
}

// ServeImage streams a stored product image; used when images live on local disk
func (ctl *ProductController) ServeImage(c *gin.Context) {
	body, contentType, err := ctl.products.OpenImage(c.Request.Context(), c.Param("key"))
	if err != nil {
		utils.RespondWithError(c, err)
		return
	}
	defer body.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
