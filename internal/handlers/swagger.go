package handlers

// @title Jewellery Billing API
// @version 1.0
// @description Billing, estimates and invoice numbering for a jewellery shop. Prices follow the daily metal rates.

// @contact.name API Support
// @contact.url https://github.com/your-org/jewellery-billing-api

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name products
// @tag.description Product catalogue and stock

// @tag.name rates
// @tag.description Daily metal rates and GST/wastage settings

// @tag.name bills
// @tag.description Bills, estimates and sales

// @tag.name auth
// @tag.description Authentication operations

// @tag.name users
// @tag.description Shop accounts
