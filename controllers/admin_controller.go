package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yonaskd/fleetms/models"
	"github.com/yonaskd/fleetms/utils"
)

// AdminController manages the lookup tables expenses and vehicles reference:
// vendors, branches and expense categories. All write routes sit behind the
// admin middleware.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

// ListVendors returns all vendors.
func (a *AdminController) ListVendors(ctx *gin.Context) {
	var vendors []models.Vendor
	if err := a.db.Order("name asc").Find(&vendors).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to list vendors")
		return
	}
	utils.Success(ctx, vendors)
}

// CreateVendor registers a vendor.
func (a *AdminController) CreateVendor(ctx *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required,min=2,max=128"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}
	vendor := models.Vendor{
		Name:    utils.Sanitize(req.Name),
		Phone:   utils.Sanitize(req.Phone),
		Address: utils.Sanitize(req.Address),
	}
	if err := a.db.Create(&vendor).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40970, "vendor name already exists")
		return
	}
	utils.Success(ctx, vendor)
}

// UpdateVendor modifies a vendor.
func (a *AdminController) UpdateVendor(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40081, "invalid vendor id")
		return
	}
	var vendor models.Vendor
	if err := a.db.First(&vendor, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40470, "vendor not found")
		return
	}
	var req struct {
		Name    string `json:"name" binding:"required,min=2,max=128"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}
	vendor.Name = utils.Sanitize(req.Name)
	vendor.Phone = utils.Sanitize(req.Phone)
	vendor.Address = utils.Sanitize(req.Address)
	if err := a.db.Save(&vendor).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to update vendor")
		return
	}
	utils.Success(ctx, vendor)
}

// DeleteVendor removes a vendor.
func (a *AdminController) DeleteVendor(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40081, "invalid vendor id")
		return
	}
	if err := a.db.Delete(&models.Vendor{}, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to delete vendor")
		return
	}
	utils.Success(ctx, nil)
}

// ListBranches returns all branches.
func (a *AdminController) ListBranches(ctx *gin.Context) {
	var branches []models.Branch
	if err := a.db.Order("name asc").Find(&branches).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to list branches")
		return
	}
	utils.Success(ctx, branches)
}

// CreateBranch registers a branch.
func (a *AdminController) CreateBranch(ctx *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,min=2,max=128"`
		City string `json:"city"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40082, "invalid request payload")
		return
	}
	branch := models.Branch{Name: utils.Sanitize(req.Name), City: utils.Sanitize(req.City)}
	if err := a.db.Create(&branch).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40971, "branch name already exists")
		return
	}
	utils.Success(ctx, branch)
}

// UpdateBranch modifies a branch.
func (a *AdminController) UpdateBranch(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40083, "invalid branch id")
		return
	}
	var branch models.Branch
	if err := a.db.First(&branch, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40471, "branch not found")
		return
	}
	var req struct {
		Name string `json:"name" binding:"required,min=2,max=128"`
		City string `json:"city"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40082, "invalid request payload")
		return
	}
	branch.Name = utils.Sanitize(req.Name)
	branch.City = utils.Sanitize(req.City)
	if err := a.db.Save(&branch).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50074, "failed to update branch")
		return
	}
	utils.Success(ctx, branch)
}

// DeleteBranch removes a branch. Vehicles keep a dangling branch_id on
// purpose; the registry treats it as unassigned.
func (a *AdminController) DeleteBranch(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40083, "invalid branch id")
		return
	}
	if err := a.db.Delete(&models.Branch{}, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50075, "failed to delete branch")
		return
	}
	utils.Success(ctx, nil)
}

// ListCategories returns all expense categories.
func (a *AdminController) ListCategories(ctx *gin.Context) {
	var categories []models.ExpenseCategory
	if err := a.db.Order("name asc").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50076, "failed to list categories")
		return
	}
	utils.Success(ctx, categories)
}

// CreateCategory registers an expense category.
func (a *AdminController) CreateCategory(ctx *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,min=2,max=64"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40084, "invalid request payload")
		return
	}
	category := models.ExpenseCategory{Name: utils.Sanitize(req.Name)}
	if err := a.db.Create(&category).Error; err != nil {
		utils.Error(ctx, http.StatusConflict, 40972, "category name already exists")
		return
	}
	utils.Success(ctx, category)
}

// UpdateCategory renames an expense category.
func (a *AdminController) UpdateCategory(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40085, "invalid category id")
		return
	}
	var category models.ExpenseCategory
	if err := a.db.First(&category, id).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40472, "category not found")
		return
	}
	var req struct {
		Name string `json:"name" binding:"required,min=2,max=64"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40084, "invalid request payload")
		return
	}
	category.Name = utils.Sanitize(req.Name)
	if err := a.db.Save(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50078, "failed to update category")
		return
	}
	utils.Success(ctx, category)
}

// DeleteCategory removes an expense category.
func (a *AdminController) DeleteCategory(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40085, "invalid category id")
		return
	}
	if err := a.db.Delete(&models.ExpenseCategory{}, id).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50077, "failed to delete category")
		return
	}
	utils.Success(ctx, nil)
}
